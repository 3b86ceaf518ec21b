package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestThrottleAllowsBurstThenDenies(t *testing.T) {
	th := newThrottle(60, zap.NewNop()) // 1 req/s, burst 5
	for i := 0; i < limiterBurst; i++ {
		assert.True(t, th.allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, th.allow("10.0.0.1"))
}

func TestThrottleTracksClientsIndependently(t *testing.T) {
	th := newThrottle(60, zap.NewNop())
	for i := 0; i < limiterBurst; i++ {
		th.allow("10.0.0.1")
	}
	assert.False(t, th.allow("10.0.0.1"))
	assert.True(t, th.allow("10.0.0.2"))
}
