package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"obsquery/core"
	"obsquery/metrics"
	"obsquery/search"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

// bleveBatchSize is the number of documents flushed per bleve batch.
const bleveBatchSize = 250

// BleveBackend is an embedded search index. An empty path keeps the index
// in memory.
type BleveBackend struct {
	mu     sync.RWMutex
	idx    bleve.Index
	path   string
	logger *zap.SugaredLogger
}

// NewBleveBackend opens the index at path or creates it with the event mapping.
func NewBleveBackend(path string, logger *zap.SugaredLogger) (*BleveBackend, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildEventMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory bleve index: %w", err)
		}
		return &BleveBackend{idx: idx, logger: logger}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index parent dir: %w", err)
	}

	var (
		idx bleve.Index
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		idx, err = bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bleve index: %w", err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		idx, err = bleve.New(path, buildEventMapping())
		if err != nil {
			return nil, fmt.Errorf("create bleve index: %w", err)
		}
		logger.Infow("created bleve index", "path", path)
	} else {
		return nil, fmt.Errorf("stat index: %w", statErr)
	}

	return &BleveBackend{idx: idx, path: path, logger: logger}, nil
}

func domainFieldMapping() *mapping.FieldMapping {
	fm := mapping.NewTextFieldMapping()
	fm.Analyzer = AnalyzerDomainSuffix
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

func observableFieldMapping() *mapping.FieldMapping {
	fm := mapping.NewTextFieldMapping()
	fm.Analyzer = AnalyzerObservable
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

func dateFieldMapping() *mapping.FieldMapping {
	fm := mapping.NewDateTimeFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

// buildEventMapping mirrors the Elasticsearch events mapping: observable
// objects become sub-documents and domain fields are indexed by suffix.
func buildEventMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(AnalyzerDomainSuffix, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     DomainSuffixTokenizerName,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		panic(err)
	}
	if err := indexMapping.AddCustomAnalyzer(AnalyzerObservable, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		panic(err)
	}
	indexMapping.DefaultAnalyzer = AnalyzerObservable

	ipv4Mapping := mapping.NewDocumentStaticMapping()
	ipv4Mapping.AddFieldMappingsAt("ipv4", observableFieldMapping())

	fqdnMapping := mapping.NewDocumentStaticMapping()
	fqdnMapping.AddFieldMappingsAt("fqdn", domainFieldMapping())

	dnsAnswerMapping := mapping.NewDocumentStaticMapping()
	dnsAnswerMapping.AddFieldMappingsAt("name", domainFieldMapping())
	dnsAnswerMapping.AddFieldMappingsAt("fqdn", domainFieldMapping())
	dnsAnswerMapping.AddFieldMappingsAt("ipv4", observableFieldMapping())
	dnsAnswerMapping.AddFieldMappingsAt("ipv6", observableFieldMapping())

	observablesMapping := mapping.NewDocumentStaticMapping()
	observablesMapping.AddSubDocumentMapping("ipv4", ipv4Mapping)
	observablesMapping.AddSubDocumentMapping("fqdn", fqdnMapping)
	observablesMapping.AddSubDocumentMapping("dns_answer", dnsAnswerMapping)

	eventMapping := mapping.NewDocumentStaticMapping()
	eventMapping.AddFieldMappingsAt(core.FieldImportTime, dateFieldMapping())
	eventMapping.AddFieldMappingsAt(core.FieldDetectTime, dateFieldMapping())
	eventMapping.AddFieldMappingsAt("source", observableFieldMapping())
	eventMapping.AddFieldMappingsAt("feed_provider", observableFieldMapping())
	eventMapping.AddFieldMappingsAt("feed_name", observableFieldMapping())
	eventMapping.AddFieldMappingsAt("tags", observableFieldMapping())
	eventMapping.AddSubDocumentMapping("observables", observablesMapping)

	indexMapping.DefaultMapping = eventMapping
	return indexMapping
}

// translateClause converts one boolean-query clause into a bleve query.
func translateClause(c search.Clause) (query.Query, error) {
	switch clause := c.(type) {
	case search.TimeRange:
		var start, end time.Time
		if clause.GTE != nil {
			start = *clause.GTE
		}
		if clause.LTE != nil {
			end = *clause.LTE
		}
		inclusive := true
		q := query.NewDateRangeInclusiveQuery(start, end, &inclusive, &inclusive)
		q.SetField(clause.Field)
		return q, nil
	case search.NestedMultiMatch:
		if len(clause.Fields) == 0 {
			return nil, fmt.Errorf("nested match on %s has no fields", clause.Path)
		}
		matches := make([]query.Query, 0, len(clause.Fields))
		for _, field := range clause.Fields {
			mq := query.NewMatchQuery(clause.Query)
			mq.SetField(field)
			mq.Analyzer = AnalyzerObservable
			matches = append(matches, mq)
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
		return query.NewDisjunctionQuery(matches), nil
	case search.MatchAll:
		return query.NewMatchAllQuery(), nil
	default:
		return nil, fmt.Errorf("unsupported clause %T", c)
	}
}

// translateQuery converts a boolean query into its bleve equivalent.
func translateQuery(q *search.BoolQuery) (query.Query, error) {
	must := make([]query.Query, 0, len(q.Must)+1)
	for _, c := range q.Must {
		translated, err := translateClause(c)
		if err != nil {
			return nil, err
		}
		must = append(must, translated)
	}

	if len(q.Should) > 0 {
		should := make([]query.Query, 0, len(q.Should))
		for _, c := range q.Should {
			translated, err := translateClause(c)
			if err != nil {
				return nil, err
			}
			should = append(should, translated)
		}
		disjunction := query.NewDisjunctionQuery(should)
		if q.MinimumShouldMatch != nil {
			disjunction.SetMin(float64(*q.MinimumShouldMatch))
		}
		must = append(must, disjunction)
	}

	switch len(must) {
	case 0:
		return query.NewMatchAllQuery(), nil
	case 1:
		return must[0], nil
	default:
		return query.NewConjunctionQuery(must), nil
	}
}

// bleveSort converts "field:order" into bleve's "-field" notation.
func bleveSort(directive string) []string {
	field, desc, ok := parseSort(directive)
	if !ok {
		return nil
	}
	if desc {
		return []string{"-" + field}
	}
	return []string{field}
}

// Search runs req against the index. Took is the index's own measurement.
func (b *BleveBackend) Search(ctx context.Context, req *search.Request) (*search.Result, error) {
	q, err := translateQuery(req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	searchRequest := bleve.NewSearchRequestOptions(q, req.Size, req.From, false)
	if sortBy := bleveSort(req.Sort); sortBy != nil {
		searchRequest.SortBy(sortBy)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.idx == nil {
		return nil, fmt.Errorf("%w: index closed", ErrIndexNotFound)
	}

	result, err := b.idx.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]search.Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, search.Hit{ID: h.ID, Score: h.Score})
	}
	return &search.Result{
		Took:  result.Took.Milliseconds(),
		Total: int64(result.Total),
		Hits:  hits,
	}, nil
}

// IndexEvents adds events to the index in batches.
func (b *BleveBackend) IndexEvents(ctx context.Context, events []*core.Event) error {
	if len(events) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx == nil {
		return fmt.Errorf("%w: index closed", ErrIndexNotFound)
	}

	batch := b.idx.NewBatch()
	for i, event := range events {
		if event.ID == "" {
			return ErrEventWithoutID
		}
		doc, err := event.ToMap()
		if err != nil {
			return err
		}
		delete(doc, core.FieldID)
		if err := batch.Index(event.ID, doc); err != nil {
			return fmt.Errorf("batch index: %w", err)
		}
		if (i+1)%bleveBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := b.idx.Batch(batch); err != nil {
				return fmt.Errorf("flush batch: %w", err)
			}
			batch = b.idx.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.idx.Batch(batch); err != nil {
			return fmt.Errorf("flush final batch: %w", err)
		}
	}

	metrics.EventsLoaded.WithLabelValues(BackendBleve).Add(float64(len(events)))
	return nil
}

// EnsureIndex is satisfied on open; the mapping is written when the index is created.
func (b *BleveBackend) EnsureIndex(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.idx == nil {
		return fmt.Errorf("%w: index closed", ErrIndexNotFound)
	}
	return nil
}

// HealthCheck verifies the index can report its document count.
func (b *BleveBackend) HealthCheck(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.idx == nil {
		return fmt.Errorf("%w: index closed", ErrIndexNotFound)
	}
	if _, err := b.idx.DocCount(); err != nil {
		return fmt.Errorf("bleve doc count: %w", err)
	}
	return nil
}

// Close closes the underlying Bleve index.
func (b *BleveBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idx == nil {
		return nil
	}
	err := b.idx.Close()
	b.idx = nil
	return err
}
