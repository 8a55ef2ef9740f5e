package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/loan-decision/internal/errors"
)

// DegradationLevel represents the current degradation state
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// DegradationConfig holds configuration for graceful degradation
type DegradationConfig struct {
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
	DegradedThreshold   float64       `yaml:"degraded_threshold" json:"degraded_threshold"`   // error rate 0.0-1.0
	CriticalThreshold   float64       `yaml:"critical_threshold" json:"critical_threshold"`   // error rate 0.0-1.0
	EmergencyThreshold  float64       `yaml:"emergency_threshold" json:"emergency_threshold"` // error rate 0.0-1.0
	RecoveryTimeWindow  time.Duration `yaml:"recovery_time_window" json:"recovery_time_window"`
	HealthCheckTimeout  time.Duration `yaml:"health_check_timeout" json:"health_check_timeout"`
}

// DefaultDegradationConfig returns sensible defaults
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		RecoveryTimeWindow:  5 * time.Minute,
		HealthCheckTimeout:  2 * time.Second,
	}
}

// ServiceHealth represents the health status of one pipeline dependency
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"-"`
	LevelName     string           `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorTime time.Time        `json:"last_error_time,omitempty"`
	StatusMessage string           `json:"status_message"`
	windowStart   time.Time
}

// HealthCheckFunc represents a function that checks service health
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks error rates of the model and explainer
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
	mutex        sync.RWMutex
	now          func() time.Time
}

// NewDegradationManager creates a new degradation manager
func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
		now:          time.Now,
	}
}

// RegisterService registers a service with an optional health check function
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.services[serviceName] = &ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		LevelName:     LevelNormal.String(),
		StatusMessage: "Service is healthy",
		windowStart:   dm.now(),
	}

	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Registered service for degradation management", "service", serviceName)
}

// RecordSuccess records a successful call
func (dm *DegradationManager) RecordSuccess(serviceName string) {
	dm.record(serviceName, nil)
}

// RecordError records a failed call
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	if err == nil {
		err = errors.NewInternalError("Service request failed", nil)
	}
	dm.record(serviceName, err)
}

func (dm *DegradationManager) record(serviceName string, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return
	}

	now := dm.now()
	if dm.windowExpired(service, now) {
		service.TotalRequests = 0
		service.ErrorCount = 0
		service.windowStart = now
	}

	service.TotalRequests++
	if err != nil {
		service.ErrorCount++
		service.LastError = err.Error()
		service.LastErrorTime = now
	}
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.updateDegradationLevel(service)
}

func (dm *DegradationManager) windowExpired(service *ServiceHealth, now time.Time) bool {
	return dm.config.RecoveryTimeWindow > 0 && now.Sub(service.windowStart) > dm.config.RecoveryTimeWindow
}

// updateDegradationLevel updates the degradation level based on current metrics
func (dm *DegradationManager) updateDegradationLevel(service *ServiceHealth) {
	oldLevel := service.Level

	var statusMessage string
	switch {
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		service.Level = LevelEmergency
		statusMessage = "Service is in emergency state - high error rate"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		service.Level = LevelCritical
		statusMessage = "Service is in critical state - elevated error rate"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		service.Level = LevelDegraded
		statusMessage = "Service is degraded - moderate error rate"
	default:
		service.Level = LevelNormal
		statusMessage = "Service is healthy"
	}
	service.LevelName = service.Level.String()
	service.StatusMessage = statusMessage

	if oldLevel != service.Level {
		slog.Warn("Service degradation level changed",
			"service", service.ServiceName,
			"old_level", oldLevel.String(),
			"new_level", service.Level.String(),
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}

// GetServiceHealth returns a copy of the health status of a service
func (dm *DegradationManager) GetServiceHealth(serviceName string) (ServiceHealth, bool) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return ServiceHealth{}, false
	}
	return *service, true
}

// GetAllServiceHealth returns health status for all services
func (dm *DegradationManager) GetAllServiceHealth() map[string]ServiceHealth {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	result := make(map[string]ServiceHealth, len(dm.services))
	for name, service := range dm.services {
		result[name] = *service
	}
	return result
}

// IsServiceAvailable reports whether a service is registered and not in emergency state.
// An emergency service becomes available again once its error window has expired.
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	service, exists := dm.services[serviceName]
	if !exists {
		return false
	}
	return service.Level != LevelEmergency || dm.windowExpired(service, dm.now())
}

// OverallLevel returns the worst level across all services
func (dm *DegradationManager) OverallLevel() DegradationLevel {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	worst := LevelNormal
	for _, service := range dm.services {
		if service.Level > worst {
			worst = service.Level
		}
	}
	return worst
}

// StartHealthChecks runs registered health checks periodically until ctx is done
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.RunHealthChecks(ctx)
		}
	}
}

// RunHealthChecks runs every registered health check once and records the results
func (dm *DegradationManager) RunHealthChecks(ctx context.Context) {
	dm.mutex.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mutex.RUnlock()

	var wg sync.WaitGroup
	for serviceName, healthCheck := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, errors.WrapError(err, "health check failed for service %s", name))
				return
			}
			dm.RecordSuccess(name)
		}(serviceName, healthCheck)
	}
	wg.Wait()
}
