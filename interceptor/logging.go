package interceptor

import (
	"context"
	"net/http"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/logger"
)

// Logging returns an interceptor that logs each completed exchange.
// Successful exchanges log at info, 5xx answers and transport failures at
// warn. URIs are logged with userinfo passwords redacted. A nil l uses the
// "httpkit.exchange" logger.
func Logging(l *logger.Logger) client.Interceptor {
	if l == nil {
		l = logger.Get("httpkit.exchange")
	}
	return client.InterceptorFuncs{
		AfterFunc: func(_ context.Context, ex *client.Exchange) error {
			logExchange(l, ex)
			return nil
		},
	}
}

func logExchange(l *logger.Logger, ex *client.Exchange) {
	fields := logger.Fields(
		logger.FieldMethod, ex.Request.Method(),
		logger.FieldURI, ex.Request.URL().Redacted(),
		logger.FieldDuration, ex.Elapsed.Milliseconds(),
		"attempt", ex.Attempt,
	)
	if id := ex.Request.Header().Get(DefaultRequestIDHeader); id != "" {
		fields[logger.FieldRequestID] = id
	}

	if ex.Err != nil {
		fields[logger.FieldError] = ex.Err.Error()
		if appErr, ok := errors.AsAppError(ex.Err); ok {
			fields["code"] = string(appErr.Code)
		}
		l.Warn("exchange failed", fields)
		return
	}

	fields[logger.FieldStatus] = ex.StatusCode
	if ex.StatusCode >= http.StatusInternalServerError {
		l.Warn("exchange completed", fields)
		return
	}
	l.Info("exchange completed", fields)
}
