package pagequery

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors recorded by WithMetrics.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.HistogramVec
}

// NewMetrics registers the pagination collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "paginate_requests_total",
				Help:      "Total number of paginate calls by resource and result",
			},
			[]string{"resource", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "paginate_duration_seconds",
				Help:      "Duration of paginate calls including count and fetch",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		items: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "paginate_returned_items",
				Help:      "Number of records returned per page",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"resource"},
		),
	}
}

func WithMetrics[T any](m *Metrics, resource string) func(next Paginator[T]) Paginator[T] {
	return func(next Paginator[T]) Paginator[T] {
		return PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
			start := time.Now()
			page, err := next.Paginate(ctx, req)
			m.duration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
			if err != nil {
				m.requests.WithLabelValues(resource, "error").Inc()
				return nil, err
			}
			m.requests.WithLabelValues(resource, "ok").Inc()
			m.items.WithLabelValues(resource).Observe(float64(len(page.Data)))
			return page, nil
		})
	}
}
