package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldStage      = "stage"
	FieldScope      = "scope"
	FieldBudgetID   = "budget_id"
	FieldServerID   = "server_id"
	FieldEntryID    = "entry_id"
	FieldSynced     = "synced"
	FieldFailed     = "failed"
	FieldSkipped    = "skipped"
	FieldCreated    = "created"
	FieldUpdated    = "updated"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentSync    = "sync"
	ComponentRemote  = "remote"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpList     = "list"
	OpPush     = "push"
	OpPull     = "pull"
	OpSync     = "sync"
	OpProbe    = "probe"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithStage adds the sync stage (push, pull, probe)
func (f LogFields) WithStage(stage string) LogFields {
	f[FieldStage] = stage
	return f
}

// WithBudget adds local and, when known, server budget ids
func (f LogFields) WithBudget(localID int64, serverID *int64) LogFields {
	f[FieldBudgetID] = localID
	if serverID != nil {
		f[FieldServerID] = *serverID
	}
	return f
}

// WithEntry adds the local entry id and its server id when known
func (f LogFields) WithEntry(localID int64, serverID *int64) LogFields {
	f[FieldEntryID] = localID
	if serverID != nil {
		f[FieldServerID] = *serverID
	}
	return f
}

// WithBatch adds push batch counters
func (f LogFields) WithBatch(synced, failed, skipped int) LogFields {
	f[FieldSynced] = synced
	f[FieldFailed] = failed
	f[FieldSkipped] = skipped
	return f
}

// WithMerge adds pull merge counters
func (f LogFields) WithMerge(created, updated int) LogFields {
	f[FieldCreated] = created
	f[FieldUpdated] = updated
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
