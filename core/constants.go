package core

import "time"

// Request defaults applied when a parameter is not supplied.
const (
	DefaultStart   = 1
	DefaultPerPage = 50
	DefaultOrderBy = OrderByImportTime
	DefaultOrder   = OrderDesc

	// DefaultImportWindow bounds import_time_min when the caller gives no lower bound.
	DefaultImportWindow = 30 * 24 * time.Hour
)

// Sortable fields.
const (
	OrderByImportTime = "import_time"
	OrderByDetectTime = "detect_time"
)

// Sort directions.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Document field names used by the search backends and the document stores.
const (
	FieldImportTime = "import_time"
	FieldDetectTime = "detect_time"
	FieldID         = "id"
)

// MaxErrorMessageLength caps error messages sent to clients.
const MaxErrorMessageLength = 512
