package camunda

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/config"
	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
)

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{name: "unavailable", err: fmt.Errorf("rpc error: code = Unavailable desc = connection refused"), wantCode: errors.ErrCodeBrokerUnavailable, retryable: true},
		{name: "deadline", err: fmt.Errorf("context deadline exceeded"), wantCode: errors.ErrCodeBrokerUnavailable, retryable: true},
		{name: "not found", err: fmt.Errorf("job with key 42 not found"), wantCode: errors.ErrCodeInputValidationFailed},
		{name: "other", err: fmt.Errorf("invalid argument"), wantCode: errors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapZeebeError(tt.err, "complete-job", 1)
			stdErr, ok := errors.AsStandardError(err)
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(fmt.Errorf("write: broken pipe")))
	assert.True(t, isRetryableZeebeError(fmt.Errorf("Gateway UNAVAILABLE")))
	assert.False(t, isRetryableZeebeError(fmt.Errorf("permission denied")))
}

func TestBackoffIsCapped(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoff(rc, 0))
	assert.Equal(t, 2*time.Second, backoff(rc, 1))
	assert.Equal(t, 4*time.Second, backoff(rc, 2))
	assert.Equal(t, 5*time.Second, backoff(rc, 3))
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Timeout: 2000})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.True(t, cc.UsePlaintextConnection)
	assert.Equal(t, 2*time.Second, cc.ConnectionTimeout)
	assert.Equal(t, 30*time.Second, cc.RequestTimeout)
	assert.Same(t, DefaultRetryConfig, cc.RetryConfig)
}
