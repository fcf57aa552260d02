package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument returns a middleware that wraps the handler in otelhttp server
// instrumentation (spans and the standard HTTP metrics) plus a counter of
// 5xx responses, all bound to the application's telemetry providers.
func Instrument(service string, m *app.Telemetry) Middleware {
	meter := m.MeterProvider().Meter(service)

	serverErrors, err := meter.Int64Counter("http.server.errors",
		metric.WithDescription("Responses with a 5xx status code"),
	)
	if err != nil {
		serverErrors = nil
	}

	return func(next http.Handler) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if serverErrors != nil && rec.status >= http.StatusInternalServerError {
				serverErrors.Add(r.Context(), 1, metric.WithAttributes(
					attribute.String("http.route", r.URL.Path),
					attribute.Int("http.status_code", rec.status),
				))
			}
		})

		return otelhttp.NewHandler(inner, service,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		)
	}
}
