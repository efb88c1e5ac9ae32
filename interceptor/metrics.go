package interceptor

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/httpkit/client"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/observability"
)

// Metrics returns an interceptor recording request count, duration and
// failures per exchange, tagged with clientName. A nil mp uses the global
// meter provider.
func Metrics(clientName string, mp metric.MeterProvider) (client.Interceptor, error) {
	m, err := observability.NewClientMetrics(observability.Meter(mp))
	if err != nil {
		return nil, err
	}
	return client.InterceptorFuncs{
		AfterFunc: func(ctx context.Context, ex *client.Exchange) error {
			u := ex.Request.URL()
			m.RecordExchange(ctx, clientName, ex.Request.Method(), u.Host, ex.StatusCode, ex.Elapsed)
			if ex.Err != nil {
				code := "UNKNOWN"
				if appErr, ok := errors.AsAppError(ex.Err); ok {
					code = string(appErr.Code)
				}
				m.RecordError(ctx, clientName, code)
			}
			return nil
		},
	}, nil
}
