package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dhawalhost/manageusers/pkg/observability"
)

func TestTrack(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	d := NewDispatcher(zap.New(core), metrics)

	d.Track(context.Background(), "DPSUserCreateFailure", map[string]string{"username": "BOB", "reason": "SendError", "admin": "ADMIN"})

	entries := logs.FilterField(zap.String("event", "DPSUserCreateFailure")).All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "BOB", ctx["username"])
	assert.Equal(t, "SendError", ctx["reason"])
	assert.Equal(t, "ADMIN", ctx["admin"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.TelemetryEvents.WithLabelValues("DPSUserCreateFailure")))
}
