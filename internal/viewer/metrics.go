package viewer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/loader"
)

type metrics struct {
	loadsIssued    metric.Int64Counter
	loadsDiscarded metric.Int64Counter
	loadsFailed    metric.Int64Counter
	narrations     metric.Int64Counter
	loadDuration   metric.Float64Histogram
}

func newMetrics(m metric.Meter, log *zap.Logger) *metrics {
	out := &metrics{
		loadsIssued:    noop.Int64Counter{},
		loadsDiscarded: noop.Int64Counter{},
		loadsFailed:    noop.Int64Counter{},
		narrations:     noop.Int64Counter{},
		loadDuration:   noop.Float64Histogram{},
	}
	if m == nil {
		return out
	}

	counter := func(dst *metric.Int64Counter, name, desc string) {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			log.Warn("failed to create counter", zap.String("name", name), zap.Error(err))
			return
		}
		*dst = c
	}
	counter(&out.loadsIssued, "viewer.loads.issued", "Model loads issued")
	counter(&out.loadsDiscarded, "viewer.loads.discarded", "Model loads superseded before completion")
	counter(&out.loadsFailed, "viewer.loads.failed", "Model loads that failed at the current token")
	counter(&out.narrations, "viewer.narrations", "Narration clips started")

	h, err := m.Float64Histogram("viewer.load.duration",
		metric.WithDescription("Time to fetch and decode a model"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Warn("failed to create histogram", zap.Error(err))
	} else {
		out.loadDuration = h
	}
	return out
}

// hooks feeds loader lifecycle events into the instruments and closes the
// request's span when it is discarded.
func (v *Viewer) hooks() loader.Hooks {
	ctx := context.Background()
	return loader.Hooks{
		Issued: func(req loader.Request) {
			v.metrics.loadsIssued.Add(ctx, 1)
		},
		Discarded: func(req loader.Request) {
			v.metrics.loadsDiscarded.Add(ctx, 1)
			v.endSpan(req.Token, loader.ErrSuperseded)
		},
		Failed: func(req loader.Request, err error) {
			v.metrics.loadsFailed.Add(ctx, 1)
		},
		Loaded: func(req loader.Request, took time.Duration) {
			v.metrics.loadDuration.Record(ctx, took.Seconds(),
				metric.WithAttributes(attribute.String("url", req.URL)))
		},
	}
}
