package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"obsquery/config"
	"obsquery/core"
	"obsquery/search"

	"github.com/briandowns/spinner"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

// queryOptions holds the query command's flag values.
type queryOptions struct {
	ipv4          string
	fqdn          string
	importTimeMin string
	importTimeMax string
	detectTimeMin string
	detectTimeMax string
	start         int
	perPage       int
	orderBy       string
	order         string
	timing        bool
	output        string
}

// params applies the configured defaults and the flags. Zero start and
// per-page mean the defaults.
func (o *queryOptions) params(now time.Time, cfg config.QueryConfig) (*core.QueryParams, error) {
	params := core.NewQueryParams(now, cfg.DefaultWindow(), cfg.DefaultPerPage)

	if o.start != 0 {
		params.Start = o.start
	}
	if o.perPage != 0 {
		if o.perPage > cfg.MaxPerPage {
			return nil, fmt.Errorf("--per-page must not exceed %d", cfg.MaxPerPage)
		}
		params.PerPage = o.perPage
	}
	if o.orderBy != "" {
		params.OrderBy = strings.ToLower(o.orderBy)
	}
	if o.order != "" {
		params.Order = strings.ToLower(o.order)
	}
	if o.timing {
		params.Timing = 1
	}

	parser := search.NewTimeRangeParser(search.ClockFunc(func() time.Time { return now }))
	bounds := []struct {
		flag  string
		value string
		dst   **time.Time
	}{
		{"import-time-min", o.importTimeMin, &params.ImportTimeMin},
		{"import-time-max", o.importTimeMax, &params.ImportTimeMax},
		{"detect-time-min", o.detectTimeMin, &params.DetectTimeMin},
		{"detect-time-max", o.detectTimeMax, &params.DetectTimeMax},
	}
	for _, bound := range bounds {
		if strings.TrimSpace(bound.value) == "" {
			continue
		}
		t, err := parser.ParseTimeRange(bound.value)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", bound.flag, err)
		}
		*bound.dst = &t
	}

	params.IPv4 = strings.TrimSpace(o.ipv4)
	params.FQDN = strings.ToLower(strings.TrimSpace(o.fqdn))

	if err := validator.New().Struct(params); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return params, nil
}

// newQueryCmd creates the 'query' subcommand
func newQueryCmd() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one query and print the result",
		Long: `Run a single query through the same pipeline the HTTP API uses and print
the response.

Time bounds accept RFC 3339, "2006-01-02 15:04:05", "2006-01-02" or relative
expressions such as "last 7d".`,
		Example: `  obsquery query --fqdn example.com --import-time-min "last 7d"
  obsquery query --ipv4 192.0.2.10 --output table --timing`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputJSON, outputYAML, outputTable:
			default:
				return fmt.Errorf("invalid --output %q (must be json, yaml or table)", opts.output)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			requestStart := time.Now()
			params, err := opts.params(requestStart, sess.cfg.Query)
			if err != nil {
				return err
			}

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Querying events..."
				s.Start()
			}

			resp, err := sess.components.Pipeline.Run(ctx, requestStart, params)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			return writeResponse(cmd.OutOrStdout(), resp.View(), opts.output)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.ipv4, "ipv4", "", "IPv4 observable to match")
	flags.StringVar(&opts.fqdn, "fqdn", "", "Domain to match, including its subdomains")
	flags.StringVar(&opts.importTimeMin, "import-time-min", "", "Earliest import time (default: the configured window)")
	flags.StringVar(&opts.importTimeMax, "import-time-max", "", "Latest import time")
	flags.StringVar(&opts.detectTimeMin, "detect-time-min", "", "Earliest detect time")
	flags.StringVar(&opts.detectTimeMax, "detect-time-max", "", "Latest detect time")
	flags.IntVar(&opts.start, "start", 0, "1-based offset of the first result")
	flags.IntVar(&opts.perPage, "per-page", 0, "Results per page (default: the configured page size)")
	flags.StringVar(&opts.orderBy, "order-by", core.DefaultOrderBy, "Sort field (import_time or detect_time)")
	flags.StringVar(&opts.order, "order", core.DefaultOrder, "Sort direction (asc or desc)")
	flags.BoolVar(&opts.timing, "timing", false, "Include timing diagnostics")
	flags.StringVarP(&opts.output, "output", "o", outputJSON, "Output format: json, yaml or table")

	return cmd
}

// writeResponse prints view in the given format.
func writeResponse(w io.Writer, view *core.ResponseView, format string) error {
	switch format {
	case outputYAML:
		return writeYAML(w, view)
	case outputTable:
		renderResponseTable(w, view)
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
}

// writeYAML renders v through its JSON form so field names and time
// formats match the HTTP API.
func writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to convert response: %w", err)
	}
	resetStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// resetStyle drops the flow and quoting styles JSON input leaves on nodes.
func resetStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		resetStyle(child)
	}
}
