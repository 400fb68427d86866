package otel

import otelMetric "go.opentelemetry.io/otel/metric"

const (
	transferMeterPrefix = "keboola.go.client."
	httpMeterPrefix     = "keboola.go.http."
)

type allMeters struct {
	transfer transferMeters
	http     httpMeters
	body     bodyMeters
}

type transferMeters struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

type httpMeters struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

type bodyMeters struct {
	bytes otelMetric.Int64Counter
}

func newMeters(meter otelMetric.Meter, cfg config) *allMeters {
	out := &allMeters{
		transfer: transferMeters{
			inFlight: upDownCounter(meter, transferMeterPrefix+"transfer.in_flight", "Multi client: in flight transfers."),
			duration: histogram(meter, transferMeterPrefix+"transfer.duration", "Multi client: transfers duration, including redirects and body.", "ms"),
		},
		http: httpMeters{
			inFlight: upDownCounter(meter, httpMeterPrefix+"request.in_flight", "HTTP request: in flight requests."),
			duration: histogram(meter, httpMeterPrefix+"request.duration", "HTTP request: response received duration (without body).", "ms"),
		},
	}
	if cfg.bodyMetrics {
		out.body.bytes = mustInstrument(meter.Int64Counter(
			transferMeterPrefix+"transfer.body.bytes",
			otelMetric.WithDescription("Multi client: received body bytes."),
			otelMetric.WithUnit("By"),
		))
	}
	return out
}

func upDownCounter(meter otelMetric.Meter, name, desc string) otelMetric.Int64UpDownCounter {
	return mustInstrument(meter.Int64UpDownCounter(name, otelMetric.WithDescription(desc)))
}

func histogram(meter otelMetric.Meter, name, desc string, unit string) otelMetric.Float64Histogram {
	return mustInstrument(meter.Float64Histogram(name, otelMetric.WithDescription(desc), otelMetric.WithUnit(unit)))
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
