package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/psantana5/grain/pkg/store"
)

// RecordCounter is the part of store.Store the records collector reads
type RecordCounter interface {
	RecordCounts(ctx context.Context) ([]store.RecordCount, error)
}

const scrapeTimeout = 5 * time.Second

// recordsCollector reports active and trashed rows per table on every scrape
type recordsCollector struct {
	counter RecordCounter
	log     *zap.Logger
	desc    *prometheus.Desc
}

func newRecordsCollector(counter RecordCounter, log *zap.Logger) *recordsCollector {
	return &recordsCollector{
		counter: counter,
		log:     log.Named("metrics"),
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "records"),
			"Stored records by table and state (active or trashed).",
			[]string{"table", "state"}, nil,
		),
	}
}

func (c *recordsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *recordsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	counts, err := c.counter.RecordCounts(ctx)
	if err != nil {
		c.log.Warn("Failed to count records", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}
	for _, rc := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(rc.Active), rc.Table, "active")
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(rc.Trashed), rc.Table, "trashed")
	}
}
