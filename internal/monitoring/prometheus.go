package monitoring

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loan_decision"

var (
	requestsDesc = prometheus.NewDesc(namespace+"_http_requests_total",
		"Served HTTP requests by status code.", []string{"code"}, nil)
	decisionsDesc = prometheus.NewDesc(namespace+"_decisions_total",
		"Completed decisions by outcome.", []string{"outcome"}, nil)
	rejectionsDesc = prometheus.NewDesc(namespace+"_rejections_total",
		"Submissions rejected before inference, by error category.", []string{"category"}, nil)
	inferenceErrorsDesc = prometheus.NewDesc(namespace+"_inference_errors_total",
		"Model failures on valid records.", nil, nil)
	explanationDesc = prometheus.NewDesc(namespace+"_explanations_missing_total",
		"Decisions returned without an explanation, by reason.", []string{"reason"}, nil)
	rateLimitDesc = prometheus.NewDesc(namespace+"_rate_limit_blocks_total",
		"Requests refused by the rate limiter.", nil, nil)
	cacheDesc = prometheus.NewDesc(namespace+"_cache_lookups_total",
		"Decision cache lookups by result.", []string{"result"}, nil)
	latencyDesc = prometheus.NewDesc(namespace+"_response_time_seconds",
		"Response time quantiles over the recent sample window.", []string{"quantile"}, nil)
)

// Collector exposes Metrics to Prometheus. Values are read at scrape time,
// so the JSON /metrics view and the exposition never disagree.
type Collector struct {
	metrics *Metrics
}

// NewCollector wraps m
func NewCollector(m *Metrics) *Collector {
	return &Collector{metrics: m}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		requestsDesc, decisionsDesc, rejectionsDesc, inferenceErrorsDesc,
		explanationDesc, rateLimitDesc, cacheDesc, latencyDesc,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.metrics

	for code, n := range m.GetStatusCodeDistribution() {
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(n), strconv.Itoa(code))
	}

	m.pipelineMutex.RLock()
	for outcome, n := range m.DecisionsByOutcome {
		ch <- prometheus.MustNewConstMetric(decisionsDesc, prometheus.CounterValue, float64(n), outcome)
	}
	for category, n := range m.RejectionsByCategory {
		ch <- prometheus.MustNewConstMetric(rejectionsDesc, prometheus.CounterValue, float64(n), category)
	}
	m.pipelineMutex.RUnlock()

	ch <- prometheus.MustNewConstMetric(inferenceErrorsDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&m.InferenceErrors)))
	ch <- prometheus.MustNewConstMetric(explanationDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&m.ExplanationFailures)), "failed")
	ch <- prometheus.MustNewConstMetric(explanationDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&m.ExplanationsSkipped)), "skipped")
	ch <- prometheus.MustNewConstMetric(rateLimitDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&m.RateLimitBlocks)))
	ch <- prometheus.MustNewConstMetric(cacheDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&m.CacheHits)), "hit")
	ch <- prometheus.MustNewConstMetric(cacheDesc, prometheus.CounterValue, float64(atomic.LoadInt64(&m.CacheMisses)), "miss")

	for _, q := range []float64{50, 95, 99} {
		ch <- prometheus.MustNewConstMetric(latencyDesc, prometheus.GaugeValue,
			m.GetPercentileResponseTime(q).Seconds(), strconv.FormatFloat(q/100, 'f', -1, 64))
	}
}

// PrometheusHandler serves m in the Prometheus text format from a private registry
func PrometheusHandler(m *Metrics) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(m))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
