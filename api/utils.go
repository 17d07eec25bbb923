package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"obsquery/core"

	"go.uber.org/zap"
)

var (
	databaseURIPattern = regexp.MustCompile(`(?:mongodb|mongodb\+srv|sqlite|https?)://[^\s"']+`)
	filePathPattern    = regexp.MustCompile(`(^|\s)(?:[A-Za-z]:\\|/)(?:[^\\/:*?"<>|\s]+[\\/])*[^\\/:*?"<>|\s]+`)
	credentialPattern  = regexp.MustCompile(`(?i)(password|secret|token|credential|auth)[:=]\s*["']?[^"'\s]+["']?`)
	stackTracePattern  = regexp.MustCompile(`(?m)^goroutine \d+.*$`)
)

var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b`),
	regexp.MustCompile(`\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
	regexp.MustCompile(`\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
}

// sanitizeErrorMessage removes backend addresses, paths, private IPs and
// credentials from messages sent to clients.
func sanitizeErrorMessage(message string) string {
	message = databaseURIPattern.ReplaceAllString(message, "[BACKEND_ADDRESS]")
	message = filePathPattern.ReplaceAllString(message, "${1}[FILE_PATH]")
	for _, pattern := range privateIPPatterns {
		message = pattern.ReplaceAllString(message, "[PRIVATE_IP]")
	}
	message = credentialPattern.ReplaceAllString(message, "$1=[REDACTED]")
	message = stackTracePattern.ReplaceAllString(message, "[STACK_TRACE]")

	if len(message) > core.MaxErrorMessageLength {
		message = message[:core.MaxErrorMessageLength-3] + "..."
	}

	return message
}

// writeError logs the full error and sends a sanitized message to the client
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Errorw(message, "status_code", statusCode)
		}
	}

	http.Error(w, sanitizeErrorMessage(message), statusCode)
}

// respondJSON sends a JSON response
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response already started, can't send error to client
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}
