package logger

// Field keys shared by every package that logs.
const (
	FieldComponent   = "component"
	FieldBackend     = "backend"
	FieldClientID    = "client_id"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldURI         = "uri"
	FieldStatus      = "status"
	FieldInterceptor = "interceptor"
	FieldConnection  = "connection_id"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are dropped.
//
//	log.Info("sent", logger.Fields(logger.FieldMethod, "GET", logger.FieldStatus, 200))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields tags err with the operation that produced it. A nil err
// yields only the operation.
func ErrorFields(op string, err error) map[string]any {
	m := map[string]any{FieldOperation: op}
	if err != nil {
		m[FieldError] = err.Error()
	}
	return m
}
