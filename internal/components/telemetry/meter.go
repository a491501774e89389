package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const countGaugeName = "sportscentre.count"

// MeterAPI forwards every report to an inner API and additionally records ReportCount as an
// otel gauge, with the report id as the "id" attribute.
type MeterAPI struct {
	inner API
	gauge metric.Int64Gauge
}

func NewMeterAPI(inner API, meter metric.Meter) (MeterAPI, error) {
	gauge, err := meter.Int64Gauge(
		countGaugeName,
		metric.WithDescription("Point in time counts reported by components."),
	)
	if err != nil {
		return MeterAPI{}, err
	}
	return MeterAPI{inner: inner, gauge: gauge}, nil
}

func (m MeterAPI) ReportBroken(id string, params ...any) {
	m.inner.ReportBroken(id, params...)
}

func (m MeterAPI) ReportWarning(id string, params ...any) {
	m.inner.ReportWarning(id, params...)
}

func (m MeterAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MeterAPI) ReportCount(id string, count int64) {
	m.inner.ReportCount(id, count)
	m.gauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
}
