package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxResponseSamples = 1000

// Metrics holds in-process counters for the decision service
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Pipeline outcomes
	Decisions            int64
	InferenceErrors      int64
	ExplanationFailures  int64
	ExplanationsSkipped  int64
	RateLimitBlocks      int64
	DecisionsByOutcome   map[string]int64
	RejectionsByCategory map[string]int64
	pipelineMutex        sync.RWMutex

	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, maxResponseSamples),
		RequestCountByStatus: make(map[int]int64),
		DecisionsByOutcome:   make(map[string]int64),
		RejectionsByCategory: make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordDecision counts a completed decision by outcome
func (m *Metrics) RecordDecision(outcome string) {
	atomic.AddInt64(&m.Decisions, 1)
	m.pipelineMutex.Lock()
	m.DecisionsByOutcome[outcome]++
	m.pipelineMutex.Unlock()
}

// RecordRejection counts a submission refused before inference, by error category
func (m *Metrics) RecordRejection(category string) {
	m.pipelineMutex.Lock()
	m.RejectionsByCategory[category]++
	m.pipelineMutex.Unlock()
}

// IncrementInferenceError counts a model failure on a valid record
func (m *Metrics) IncrementInferenceError() {
	atomic.AddInt64(&m.InferenceErrors, 1)
}

// IncrementExplanationFailure counts an explanation that failed and degraded
func (m *Metrics) IncrementExplanationFailure() {
	atomic.AddInt64(&m.ExplanationFailures, 1)
}

// IncrementExplanationSkipped counts an explanation not attempted because the explainer was unhealthy
func (m *Metrics) IncrementExplanationSkipped() {
	atomic.AddInt64(&m.ExplanationsSkipped, 1)
}

// IncrementRateLimitBlock counts a request refused by the rate limiter
func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > maxResponseSamples {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetPipelineStats returns decision and rejection counts
func (m *Metrics) GetPipelineStats() map[string]interface{} {
	m.pipelineMutex.RLock()
	outcomes := make(map[string]int64, len(m.DecisionsByOutcome))
	for k, v := range m.DecisionsByOutcome {
		outcomes[k] = v
	}
	rejections := make(map[string]int64, len(m.RejectionsByCategory))
	for k, v := range m.RejectionsByCategory {
		rejections[k] = v
	}
	m.pipelineMutex.RUnlock()

	return map[string]interface{}{
		"decisions":            atomic.LoadInt64(&m.Decisions),
		"decisions_by_outcome": outcomes,
		"rejections":           rejections,
		"inference_errors":     atomic.LoadInt64(&m.InferenceErrors),
		"explanation_failures": atomic.LoadInt64(&m.ExplanationFailures),
		"explanations_skipped": atomic.LoadInt64(&m.ExplanationsSkipped),
		"rate_limit_blocks":    atomic.LoadInt64(&m.RateLimitBlocks),
	}
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	totalCacheRequests := cacheHits + cacheMisses
	if totalCacheRequests > 0 {
		cacheHitRate = float64(cacheHits) / float64(totalCacheRequests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"avg_response_time_ms":   float64(avgResponseTime) / 1000000,
		"start_time":             m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"pipeline":                 m.GetPipelineStats(),
	}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	for _, p := range []*int64{
		&m.RequestCount, &m.ErrorCount, &m.CacheHits, &m.CacheMisses, &m.AverageResponseTime,
		&m.Decisions, &m.InferenceErrors, &m.ExplanationFailures, &m.ExplanationsSkipped, &m.RateLimitBlocks,
	} {
		atomic.StoreInt64(p, 0)
	}

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.pipelineMutex.Lock()
	m.DecisionsByOutcome = make(map[string]int64)
	m.RejectionsByCategory = make(map[string]int64)
	m.pipelineMutex.Unlock()

	m.StartTime = time.Now()
}
