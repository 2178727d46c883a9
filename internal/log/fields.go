package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldOwnerID    = "owner_id"
	FieldJobID      = "job_id"
	FieldFormat     = "format"
	FieldState      = "state"
	FieldRows       = "rows"
	FieldPages      = "pages"
	FieldBytes      = "bytes"
	FieldCommitted  = "committed"
	FieldFilename   = "filename"
	FieldStartDate  = "start_date"
	FieldEndDate    = "end_date"
	FieldCategoryID = "category_id"
	FieldLimit      = "limit"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentExport    = "export"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentSecurity  = "security"
	ComponentAuth      = "auth"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpList     = "list"
	OpExport   = "export"
	OpReport   = "report"
	OpPublish  = "publish"
	OpValidate = "validate"
	OpParse    = "parse"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithFilter adds the filter criteria of a report or export.
func (f LogFields) WithFilter(ownerID int64, start, end string, categoryID *int64, limit int) LogFields {
	f[FieldOwnerID] = ownerID
	if start != "" {
		f[FieldStartDate] = start
	}
	if end != "" {
		f[FieldEndDate] = end
	}
	if categoryID != nil {
		f[FieldCategoryID] = *categoryID
	}
	if limit > 0 {
		f[FieldLimit] = limit
	}
	return f
}

// WithJob adds export job identity fields.
func (f LogFields) WithJob(id, format, filename string) LogFields {
	f[FieldJobID] = id
	f[FieldFormat] = format
	if filename != "" {
		f[FieldFilename] = filename
	}
	return f
}

// WithProgress adds export progress counters.
func (f LogFields) WithProgress(rows, pages int, bytes int64) LogFields {
	f[FieldRows] = rows
	if pages > 0 {
		f[FieldPages] = pages
	}
	f[FieldBytes] = bytes
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
