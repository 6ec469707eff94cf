package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metrics holds the counters recorded by the site. A nil *Metrics is valid and records nothing.
type Metrics struct {
	leadsCreated    metric.Int64Counter
	contentSaved    metric.Int64Counter
	contentImported metric.Int64Counter
	adminLogins     metric.Int64Counter
	requests        metric.Int64Counter
}

// NewMetrics registers counters on meter, or on the global meter provider when meter is nil.
// Registration failures are logged and leave the affected counter disabled.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			logger.Warn("metrics: unable to register counter", zap.String("name", name), zap.Error(err))
			return nil
		}
		return c
	}
	return &Metrics{
		leadsCreated:    counter("site.leads.created", "Leads captured by the public form or API"),
		contentSaved:    counter("site.content.saved", "Content document writes"),
		contentImported: counter("site.content.imported", "Content document imports"),
		adminLogins:     counter("site.admin.logins", "Admin login attempts by outcome"),
		requests:        counter("site.http.requests", "HTTP requests by route and status"),
	}
}

// LeadCreated counts one captured lead from source ("form" or "api").
func (m *Metrics) LeadCreated(ctx context.Context, source string) {
	if m == nil || m.leadsCreated == nil {
		return
	}
	m.leadsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// ContentSaved counts one content write with its cause ("save", "reset", "import").
func (m *Metrics) ContentSaved(ctx context.Context, cause string) {
	if m == nil || m.contentSaved == nil {
		return
	}
	m.contentSaved.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", cause)))
}

// ContentImported counts import attempts by outcome.
func (m *Metrics) ContentImported(ctx context.Context, ok bool) {
	if m == nil || m.contentImported == nil {
		return
	}
	m.contentImported.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

// AdminLogin counts login attempts by outcome.
func (m *Metrics) AdminLogin(ctx context.Context, ok bool) {
	if m == nil || m.adminLogins == nil {
		return
	}
	m.adminLogins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}

// RequestServed counts one HTTP response.
func (m *Metrics) RequestServed(ctx context.Context, route string, status int) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route), attribute.Int("status", status)))
}
