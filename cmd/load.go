package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"obsquery/core"
	"obsquery/metrics"
	"obsquery/storage"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLoadBatchSize = 500
	maxEventLineBytes    = 1024 * 1024
)

// Metric destinations for loaded events
const (
	destinationDocuments = "documents"
	destinationSearch    = "search"
)

// lineError records an input line that could not be decoded.
type lineError struct {
	Line int
	Err  error
}

// loadSummary reports the outcome of a load.
type loadSummary struct {
	Loaded  int
	Skipped []lineError
}

// eventLoader writes decoded events to both backends in batches.
type eventLoader struct {
	store     storage.EventStore
	index     storage.SearchIndex
	batchSize int
	strict    bool
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// decodeEventLine parses one NDJSON record. Events without an id get a
// UUID; events without an import time are stamped with now.
func decodeEventLine(line []byte, now time.Time) (*core.Event, error) {
	var event core.Event
	if err := json.Unmarshal(line, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedEvent, err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.ImportTime.IsZero() {
		event.ImportTime = now.UTC()
	}
	return &event, nil
}

// Load reads newline-delimited events from r. Blank lines are ignored.
// Undecodable lines are skipped and reported unless the loader is strict.
func (l *eventLoader) Load(ctx context.Context, r io.Reader) (*loadSummary, error) {
	summary := &loadSummary{}
	batch := make([]*core.Event, 0, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.writeBatch(ctx, batch); err != nil {
			return err
		}
		summary.Loaded += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		event, err := decodeEventLine(line, l.now())
		if err != nil {
			if l.strict {
				return summary, fmt.Errorf("line %d: %w", lineNo, err)
			}
			l.logger.Warnw("Skipping undecodable event", "line", lineNo, "error", err)
			summary.Skipped = append(summary.Skipped, lineError{Line: lineNo, Err: err})
			continue
		}

		batch = append(batch, event)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("failed to read events after line %d: %w", lineNo, err)
	}

	if err := flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

// writeBatch stores events in the document store and the search index concurrently.
func (l *eventLoader) writeBatch(ctx context.Context, events []*core.Event) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := l.store.PutEvents(gctx, events); err != nil {
			return fmt.Errorf("failed to store events: %w", err)
		}
		metrics.EventsLoaded.WithLabelValues(destinationDocuments).Add(float64(len(events)))
		return nil
	})
	g.Go(func() error {
		if err := l.index.IndexEvents(gctx, events); err != nil {
			return fmt.Errorf("failed to index events: %w", err)
		}
		metrics.EventsLoaded.WithLabelValues(destinationSearch).Add(float64(len(events)))
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	l.logger.Debugw("Batch written", "events", len(events))
	return nil
}

// newLoadCmd creates the 'load' subcommand
func newLoadCmd() *cobra.Command {
	var (
		batchSize int
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load newline-delimited JSON events",
		Long: `Load events from a file of newline-delimited JSON records into the document
store and the search index. Use "-" to read from standard input.

The search index is created with its observable mapping if it does not exist.
Events without an id are assigned a UUID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchSize <= 0 {
				return fmt.Errorf("--batch-size must be positive")
			}

			var input io.Reader
			if args[0] == "-" {
				input = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open events file: %w", err)
				}
				defer f.Close()
				input = f
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.components.Index.EnsureIndex(ctx); err != nil {
				return fmt.Errorf("failed to prepare search index: %w", err)
			}

			loader := &eventLoader{
				store:     sess.components.Store,
				index:     sess.components.Index,
				batchSize: batchSize,
				strict:    strict,
				now:       time.Now,
				logger:    sess.sugar,
			}

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Loading events..."
				s.Start()
			}

			summary, err := loader.Load(ctx, input)

			if s != nil {
				s.Stop()
			}

			if summary != nil && !quiet {
				renderLoadSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", defaultLoadBatchSize, "Events written per batch")
	cmd.Flags().BoolVar(&strict, "strict", false, "Stop at the first undecodable line instead of skipping it")

	return cmd
}

// renderLoadSummary displays the result of a load
func renderLoadSummary(w io.Writer, summary *loadSummary) {
	successColor.Fprintf(w, "✓ Loaded %d events\n", summary.Loaded)
	if len(summary.Skipped) == 0 {
		return
	}
	warningColor.Fprintf(w, "⚠ Skipped %d undecodable lines\n", len(summary.Skipped))
	for i, skipped := range summary.Skipped {
		if i == 10 {
			fmt.Fprintf(w, "  ... and %d more\n", len(summary.Skipped)-i)
			break
		}
		fmt.Fprintf(w, "  line %d: %v\n", skipped.Line, skipped.Err)
	}
}
