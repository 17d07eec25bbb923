package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"obsquery/config"
	"obsquery/core"
	"obsquery/metrics"
	"obsquery/search"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Analyzer names shared by the Elasticsearch mapping and the bleve mapping.
const (
	// AnalyzerDomainSuffix indexes a.b.example.com as every dot-suffix of the
	// name, so a query for example.com matches its subdomains.
	AnalyzerDomainSuffix = "domain_suffix"
	// AnalyzerObservable keeps the value whole and lowercases it.
	AnalyzerObservable = "observable_keyword"
)

// ElasticsearchBackend runs queries against an Elasticsearch index.
type ElasticsearchBackend struct {
	client  *elasticsearch.Client
	index   string
	refresh string
	logger  *zap.SugaredLogger
}

// NewElasticsearchBackend creates a client for cfg. No request is made until
// the first call.
func NewElasticsearchBackend(cfg config.ElasticsearchConfig, logger *zap.SugaredLogger) (*ElasticsearchBackend, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ElasticsearchBackend{
		client:  client,
		index:   cfg.Index,
		refresh: cfg.Refresh,
		logger:  logger,
	}, nil
}

// esErrorResponse is the error envelope returned by Elasticsearch.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// esSearchResponse holds the parts of a search response the pipeline needs.
type esSearchResponse struct {
	Took     int64 `json:"took"`
	TimedOut bool  `json:"timed_out"`
	Hits     struct {
		Total json.RawMessage `json:"total"`
		Hits  []struct {
			ID    string   `json:"_id"`
			Score *float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// parseTotal accepts both the object form {"value":N} and a bare number.
func parseTotal(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var total struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &total); err == nil {
		return total.Value, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("unexpected hits.total %s", string(raw))
	}
	return n, nil
}

// responseError converts an error response into a storage error.
func responseError(res *esapi.Response, op string) error {
	body, _ := io.ReadAll(res.Body)
	var envelope esErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Type == "" {
		return fmt.Errorf("%w: %s returned status %d", ErrSearchFailed, op, res.StatusCode)
	}
	if envelope.Error.Type == "index_not_found_exception" {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, envelope.Error.Reason)
	}
	return fmt.Errorf("%w: %s returned status %d: %s: %s",
		ErrSearchFailed, op, res.StatusCode, envelope.Error.Type, envelope.Error.Reason)
}

// Search sends req to the index and returns hit identifiers in engine order.
// Document sources are not fetched.
func (b *ElasticsearchBackend) Search(ctx context.Context, req *search.Request) (*search.Result, error) {
	body, err := req.Body()
	if err != nil {
		return nil, fmt.Errorf("failed to encode search body: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.index),
		b.client.Search.WithBody(bytes.NewReader(body)),
		b.client.Search.WithFrom(req.From),
		b.client.Search.WithSize(req.Size),
		b.client.Search.WithSource("false"),
		b.client.Search.WithTrackTotalHits(true),
	}
	if req.Sort != "" {
		opts = append(opts, b.client.Search.WithSort(req.Sort))
	}

	res, err := b.client.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res, "search")
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	total, err := parseTotal(parsed.Hits.Total)
	if err != nil {
		return nil, err
	}
	if parsed.TimedOut {
		b.logger.Warnw("elasticsearch search timed out, results may be partial", "index", b.index, "took_ms", parsed.Took)
	}

	result := &search.Result{
		Took:  parsed.Took,
		Total: total,
		Hits:  make([]search.Hit, 0, len(parsed.Hits.Hits)),
	}
	for _, h := range parsed.Hits.Hits {
		hit := search.Hit{ID: h.ID}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// domainField is a text field analyzed into dot-suffixes and queried whole.
func domainField() map[string]interface{} {
	return map[string]interface{}{
		"type":            "text",
		"analyzer":        AnalyzerDomainSuffix,
		"search_analyzer": AnalyzerObservable,
	}
}

func observableField() map[string]interface{} {
	return map[string]interface{}{
		"type":     "text",
		"analyzer": AnalyzerObservable,
	}
}

func keywordField() map[string]interface{} {
	return map[string]interface{}{"type": "keyword"}
}

// eventIndexDefinition is the settings and mapping the events index is created with.
func eventIndexDefinition() map[string]interface{} {
	return map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"tokenizer": map[string]interface{}{
					AnalyzerDomainSuffix: map[string]interface{}{
						"type":      "path_hierarchy",
						"delimiter": ".",
						"reverse":   true,
					},
				},
				"analyzer": map[string]interface{}{
					AnalyzerDomainSuffix: map[string]interface{}{
						"type":      "custom",
						"tokenizer": AnalyzerDomainSuffix,
						"filter":    []string{"lowercase"},
					},
					AnalyzerObservable: map[string]interface{}{
						"type":      "custom",
						"tokenizer": "keyword",
						"filter":    []string{"lowercase"},
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				core.FieldID:         keywordField(),
				"source":             keywordField(),
				"feed_provider":      keywordField(),
				"feed_name":          keywordField(),
				"tags":               keywordField(),
				core.FieldImportTime: map[string]interface{}{"type": "date"},
				core.FieldDetectTime: map[string]interface{}{"type": "date"},
				"observables": map[string]interface{}{
					"properties": map[string]interface{}{
						"ipv4": map[string]interface{}{
							"type": "nested",
							"properties": map[string]interface{}{
								"ipv4": observableField(),
							},
						},
						"fqdn": map[string]interface{}{
							"type": "nested",
							"properties": map[string]interface{}{
								"fqdn": domainField(),
							},
						},
						"dns_answer": map[string]interface{}{
							"type": "nested",
							"properties": map[string]interface{}{
								"name":     domainField(),
								"fqdn":     domainField(),
								"ipv4":     observableField(),
								"ipv6":     observableField(),
								"section":  keywordField(),
								"rr_class": keywordField(),
								"rr_type":  keywordField(),
							},
						},
					},
				},
			},
		},
	}
}

// EnsureIndex creates the events index with its nested observable mapping
// when it does not exist yet.
func (b *ElasticsearchBackend) EnsureIndex(ctx context.Context) error {
	res, err := b.client.Indices.Exists([]string{b.index}, b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index exists check: %w", err)
	}
	res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("%w: index exists check returned status %d", ErrSearchFailed, res.StatusCode)
	}

	definition, err := json.Marshal(eventIndexDefinition())
	if err != nil {
		return fmt.Errorf("failed to encode index definition: %w", err)
	}
	res, err = b.client.Indices.Create(b.index,
		b.client.Indices.Create.WithContext(ctx),
		b.client.Indices.Create.WithBody(bytes.NewReader(definition)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, "create index")
	}

	b.logger.Infow("created elasticsearch index", "index", b.index)
	return nil
}

// esBulkResponse reports per-item failures of a bulk request.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// IndexEvents writes events to the index with a single bulk request.
func (b *ElasticsearchBackend) IndexEvents(ctx context.Context, events []*core.Event) error {
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, event := range events {
		if event.ID == "" {
			return ErrEventWithoutID
		}
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": b.index, "_id": event.ID},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
		}
	}

	opts := []func(*esapi.BulkRequest){
		b.client.Bulk.WithContext(ctx),
		b.client.Bulk.WithIndex(b.index),
	}
	if b.refresh != "" {
		opts = append(opts, b.client.Bulk.WithRefresh(b.refresh))
	}
	res, err := b.client.Bulk(bytes.NewReader(buf.Bytes()), opts...)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res, "bulk")
	}

	var parsed esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if parsed.Errors {
		for _, item := range parsed.Items {
			for _, result := range item {
				if result.Error != nil {
					return fmt.Errorf("%w: indexing %s: %s: %s", ErrSearchFailed, result.ID, result.Error.Type, result.Error.Reason)
				}
			}
		}
	}

	metrics.EventsLoaded.WithLabelValues(BackendElasticsearch).Add(float64(len(events)))
	return nil
}

// HealthCheck pings the cluster.
func (b *ElasticsearchBackend) HealthCheck(ctx context.Context) error {
	res, err := b.client.Ping(b.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: ping returned status %d", ErrSearchFailed, res.StatusCode)
	}
	return nil
}

// Close implements SearchIndex. The HTTP transport needs no teardown.
func (b *ElasticsearchBackend) Close() error {
	return nil
}
