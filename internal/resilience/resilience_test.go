package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(61 * time.Second)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("x") })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Call(func() error { return errors.New("still broken") })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}

func TestDegradationManager_Levels(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("explanation", nil)

	for i := 0; i < 9; i++ {
		dm.RecordSuccess("explanation")
	}
	dm.RecordError("explanation", errors.New("shape mismatch"))

	h, ok := dm.GetServiceHealth("explanation")
	require.True(t, ok)
	assert.Equal(t, LevelDegraded, h.Level)
	assert.Equal(t, "degraded", h.LevelName)
	assert.Equal(t, "shape mismatch", h.LastError)
	assert.True(t, dm.IsServiceAvailable("explanation"))

	for i := 0; i < 10; i++ {
		dm.RecordError("explanation", nil)
	}
	assert.False(t, dm.IsServiceAvailable("explanation"))
	assert.Equal(t, LevelEmergency, dm.OverallLevel())

	assert.False(t, dm.IsServiceAvailable("unregistered"))
}

func TestDegradationManager_EmergencyRecoversAfterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.now = func() time.Time { return now }
	dm.RegisterService("explanation", nil)

	dm.RecordError("explanation", errors.New("shape mismatch"))
	require.False(t, dm.IsServiceAvailable("explanation"))

	now = now.Add(4 * time.Minute)
	assert.False(t, dm.IsServiceAvailable("explanation"))

	now = now.Add(2 * time.Minute)
	assert.True(t, dm.IsServiceAvailable("explanation"))

	dm.RecordSuccess("explanation")
	h, _ := dm.GetServiceHealth("explanation")
	assert.Equal(t, LevelNormal, h.Level)
	assert.Equal(t, int64(1), h.TotalRequests)
	assert.Zero(t, h.ErrorCount)
}

func TestDegradationManager_RunHealthChecks(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("inference", func(ctx context.Context) error { return nil })
	dm.RegisterService("explanation", func(ctx context.Context) error { return errors.New("nope") })

	dm.RunHealthChecks(context.Background())

	all := dm.GetAllServiceHealth()
	assert.Equal(t, LevelNormal, all["inference"].Level)
	assert.Equal(t, int64(1), all["inference"].TotalRequests)
	assert.Equal(t, LevelEmergency, all["explanation"].Level)
	assert.Contains(t, all["explanation"].LastError, "health check failed for service explanation")
}
