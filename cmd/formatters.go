package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"obsquery/core"
)

const tableWidth = 110

// renderResponseTable displays a query response as a table
func renderResponseTable(w io.Writer, view *core.ResponseView) {
	headerColor.Fprintf(w, "EVENTS (%d matching, showing %d)\n", view.TotalEvents, len(view.Events))
	headerColor.Fprintln(w, strings.Repeat("=", tableWidth))

	if len(view.Events) == 0 {
		warningColor.Fprintln(w, "No events matched")
	} else {
		fmt.Fprintf(w, "%-38s %-20s %-20s %-12s %s\n", "ID", "Imported", "Detected", "Source", "Observables")
		fmt.Fprintln(w, strings.Repeat("-", tableWidth))
		for _, event := range view.Events {
			fmt.Fprintf(w, "%-38s %-20s %-20s %-12s %s\n",
				event.ID,
				formatTime(event.ImportTime),
				formatTimePtr(event.DetectTime),
				truncate(event.Source, 12),
				summarizeObservables(event.Observables))
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", tableWidth))

	if view.Query != nil {
		printField(w, "Window", formatWindow(view.Query))
		printField(w, "Order", view.Query.OrderBy+" "+view.Query.Order)
		printField(w, "Page", fmt.Sprintf("start %d, %d per page", view.Query.Start, view.Query.PerPage))
	}
	if view.Timing != nil {
		printField(w, "Search", fmt.Sprintf("%.1fms (backend took %dms)", view.Timing.SearchMS, view.Timing.SearchTook))
		printField(w, "Resolve", fmt.Sprintf("%.1fms", view.Timing.ResolveMS))
		printField(w, "Total", fmt.Sprintf("%.1fms", view.Timing.TotalMS))
	}
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	infoColor.Fprintf(w, "  %-10s", key+":")
	fmt.Fprintf(w, " %s\n", value)
}

func formatWindow(params *core.QueryParams) string {
	from, to := "-", "now"
	if params.ImportTimeMin != nil {
		from = core.FormatTime(*params.ImportTimeMin)
	}
	if params.ImportTimeMax != nil {
		to = core.FormatTime(*params.ImportTimeMax)
	}
	return "imported " + from + " .. " + to
}

// summarizeObservables lists an event's indicators, abbreviated past three.
func summarizeObservables(obs core.Observables) string {
	var values []string
	for _, o := range obs.IPv4 {
		values = append(values, o.IPv4)
	}
	for _, o := range obs.FQDN {
		values = append(values, o.FQDN)
	}
	for _, o := range obs.DNSAnswer {
		values = append(values, o.Name)
	}
	if len(values) > 3 {
		return fmt.Sprintf("%s (+%d more)", strings.Join(values[:3], ", "), len(values)-3)
	}
	return strings.Join(values, ", ")
}

// formatTime formats a timestamp
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
