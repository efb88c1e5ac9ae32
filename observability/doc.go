// Package observability initialises OpenTelemetry tracing and metrics for
// processes that use httpkit clients and defines the client instruments.
//
// InitTracer and InitMeter install global providers exporting over
// OTLP/HTTP. The tracing and metrics interceptors fall back to those
// globals when no provider is passed explicitly.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("orders"))
//	if err != nil {
//		return err
//	}
//	defer tp.Shutdown(ctx)
package observability
