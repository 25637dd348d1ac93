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
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldJobID     = "job_id"
	FieldJobStatus = "job_status"
	FieldAttempt   = "attempt"
	FieldFilename  = "filename"
	FieldRows      = "rows"
	FieldColumns   = "columns"
	FieldTotal     = "total_cents"
	FieldBackend   = "backend"
	FieldRulesPath = "rules_path"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentRules     = "rules"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpParse    = "parse"
	OpClassify = "classify"
	OpRender   = "render"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpSweep    = "sweep"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
