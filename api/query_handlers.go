package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"obsquery/core"
	"obsquery/metrics"
	"obsquery/search"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// maxQueryBodyBytes bounds JSON request bodies.
const maxQueryBodyBytes = 64 * 1024

// observableFilter is the observable an endpoint requires.
type observableFilter int

const (
	filterNone observableFilter = iota
	filterIPv4
	filterFQDN
)

func (f observableFilter) endpoint() string {
	switch f {
	case filterIPv4:
		return "ipv4"
	case filterFQDN:
		return "fqdn"
	default:
		return "query"
	}
}

// queryRequest holds the raw request parameters before defaults are applied.
// Empty fields were not supplied.
type queryRequest struct {
	Start         string `mapstructure:"start"`
	PerPage       string `mapstructure:"per_page"`
	OrderBy       string `mapstructure:"order_by"`
	Order         string `mapstructure:"order"`
	Timing        string `mapstructure:"timing"`
	ImportTimeMin string `mapstructure:"import_time_min"`
	ImportTimeMax string `mapstructure:"import_time_max"`
	DetectTimeMin string `mapstructure:"detect_time_min"`
	DetectTimeMax string `mapstructure:"detect_time_max"`
	IPv4          string `mapstructure:"ipv4"`
	FQDN          string `mapstructure:"fqdn"`
}

// decodeQueryRequest reads parameters from a JSON body or from the query
// string and form values. JSON numbers and booleans are accepted for the
// numeric parameters.
func decodeQueryRequest(r *http.Request) (*queryRequest, error) {
	raw := make(map[string]interface{})

	if isJSONRequest(r) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxQueryBodyBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(body) > maxQueryBodyBytes {
			return nil, fmt.Errorf("request body exceeds %d bytes", maxQueryBodyBytes)
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, &raw); err != nil {
				return nil, fmt.Errorf("invalid JSON body: %w", err)
			}
		}
		// Query string values fill anything the body left out
		for key, values := range r.URL.Query() {
			if _, ok := raw[key]; !ok && len(values) > 0 {
				raw[key] = values[0]
			}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form: %w", err)
		}
		for key, values := range r.Form {
			if len(values) > 0 {
				raw[key] = values[0]
			}
		}
	}

	var req queryRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return &req, nil
}

func isJSONRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// buildQueryParams applies the configured defaults and parses req into
// normalized params. now anchors the default import window and relative
// time expressions.
func (a *API) buildQueryParams(req *queryRequest, filter observableFilter, now time.Time) (*core.QueryParams, error) {
	params := core.NewQueryParams(now, a.config.Query.DefaultWindow(), a.config.Query.DefaultPerPage)

	var err error
	if req.Start != "" {
		if params.Start, err = strconv.Atoi(strings.TrimSpace(req.Start)); err != nil {
			return nil, fmt.Errorf("start must be an integer")
		}
	}
	if req.PerPage != "" {
		if params.PerPage, err = strconv.Atoi(strings.TrimSpace(req.PerPage)); err != nil {
			return nil, fmt.Errorf("per_page must be an integer")
		}
		if params.PerPage > a.config.Query.MaxPerPage {
			return nil, fmt.Errorf("per_page must not exceed %d", a.config.Query.MaxPerPage)
		}
	}
	if req.Timing != "" {
		if params.Timing, err = parseTiming(req.Timing); err != nil {
			return nil, err
		}
	}
	if req.OrderBy != "" {
		params.OrderBy = strings.ToLower(strings.TrimSpace(req.OrderBy))
	}
	if req.Order != "" {
		params.Order = strings.ToLower(strings.TrimSpace(req.Order))
	}

	bounds := []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"import_time_min", req.ImportTimeMin, &params.ImportTimeMin},
		{"import_time_max", req.ImportTimeMax, &params.ImportTimeMax},
		{"detect_time_min", req.DetectTimeMin, &params.DetectTimeMin},
		{"detect_time_max", req.DetectTimeMax, &params.DetectTimeMax},
	}
	for _, bound := range bounds {
		if strings.TrimSpace(bound.value) == "" {
			continue
		}
		t, err := a.timeParser.ParseTimeRange(bound.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", bound.name, err)
		}
		*bound.dst = &t
	}

	params.IPv4 = strings.TrimSpace(req.IPv4)
	params.FQDN = strings.ToLower(strings.TrimSpace(req.FQDN))

	switch filter {
	case filterIPv4:
		if !params.HasIPv4() {
			return nil, fmt.Errorf("ipv4 is required")
		}
	case filterFQDN:
		if !params.HasFQDN() {
			return nil, fmt.Errorf("fqdn is required")
		}
	}

	if err := a.validate.Struct(params); err != nil {
		return nil, describeValidationError(err)
	}

	return params, nil
}

func parseTiming(value string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false":
		return 0, nil
	case "1", "true":
		return 1, nil
	default:
		return 0, fmt.Errorf("timing must be 0 or 1")
	}
}

// describeValidationError names the offending parameter by its JSON name.
func describeValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}
	fe := validationErrors[0]
	names := map[string]string{
		"Start":   "start",
		"PerPage": "per_page",
		"Order":   "order",
		"Timing":  "timing",
		"IPv4":    "ipv4",
		"FQDN":    "fqdn",
	}
	name, ok := names[fe.Field()]
	if !ok {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "min":
		return fmt.Errorf("%s must be at least %s", name, fe.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", name, fe.Param())
	case "ipv4":
		return fmt.Errorf("%s must be a dotted-quad IPv4 address", name)
	case "fqdn":
		return fmt.Errorf("%s must be a fully qualified domain name", name)
	default:
		return fmt.Errorf("%s is invalid", name)
	}
}

// queryEvents godoc
//
//	@Summary		Query events
//	@Description	Time-bounded search over events, optionally filtered by IPv4 or FQDN observable
//	@Tags			query
//	@Accept			json
//	@Produce		json
//	@Param			ipv4			query		string	false	"IPv4 observable (required on /query/ipv4)"
//	@Param			fqdn			query		string	false	"Domain or parent domain (required on /query/fqdn)"
//	@Param			import_time_min	query		string	false	"Lower import bound (RFC 3339 or 'last 7d')"
//	@Param			import_time_max	query		string	false	"Upper import bound"
//	@Param			detect_time_min	query		string	false	"Lower detect bound"
//	@Param			detect_time_max	query		string	false	"Upper detect bound"
//	@Param			start			query		int		false	"1-based result offset"	default(1)
//	@Param			per_page		query		int		false	"Page size"				default(50)
//	@Param			order_by		query		string	false	"Sort field"			default(import_time)
//	@Param			order			query		string	false	"asc or desc"			default(desc)
//	@Param			timing			query		int		false	"1 to include timing"
//	@Success		200				{object}	core.ResponseView
//	@Failure		400				{string}	string	"Invalid parameters"
//	@Failure		502				{string}	string	"Backend failure"
//	@Failure		503				{string}	string	"Backend unavailable"
//	@Failure		504				{string}	string	"Query timed out"
//	@Router			/api/v1/query [get]
//	@Router			/api/v1/query [post]
//	@Router			/api/v1/query/ipv4 [get]
//	@Router			/api/v1/query/ipv4 [post]
//	@Router			/api/v1/query/fqdn [get]
//	@Router			/api/v1/query/fqdn [post]
func (a *API) queryEvents(filter observableFilter) http.HandlerFunc {
	endpoint := filter.endpoint()

	return func(w http.ResponseWriter, r *http.Request) {
		logger := LogWithRequestID(r.Context(), a.logger)

		requestStart, ok := RequestReceived(r.Context())
		if !ok {
			requestStart = a.now()
		}

		req, err := decodeQueryRequest(r)
		if err != nil {
			metrics.QueriesTotal.WithLabelValues(endpoint, "invalid").Inc()
			writeError(w, http.StatusBadRequest, err.Error(), nil, logger)
			return
		}

		params, err := a.buildQueryParams(req, filter, a.now())
		if err != nil {
			metrics.QueriesTotal.WithLabelValues(endpoint, "invalid").Inc()
			writeError(w, http.StatusBadRequest, err.Error(), nil, logger)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), a.config.API.Timeout())
		defer cancel()

		resp, err := a.runner.Run(ctx, requestStart, params)
		if err != nil {
			status := http.StatusBadGateway
			message := "Search backend failure"
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				status = http.StatusGatewayTimeout
				message = "Query timed out"
			case errors.Is(err, search.ErrBackendUnavailable):
				status = http.StatusServiceUnavailable
				message = "Search backend unavailable"
			}
			metrics.QueriesTotal.WithLabelValues(endpoint, "error").Inc()
			writeError(w, status, message, err, logger)
			return
		}

		metrics.QueriesTotal.WithLabelValues(endpoint, "ok").Inc()
		logger.Debugw("query served",
			"endpoint", endpoint,
			"total_events", resp.TotalEvents,
			"returned", len(resp.Events))
		a.respondJSON(w, resp.View(), http.StatusOK)
	}
}
