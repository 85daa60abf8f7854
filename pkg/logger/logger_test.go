package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "stockval/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestWithValuation(t *testing.T) {
	l, logs := observed()
	ctx := WithLogger(context.Background(), l)

	ctx = WithValuation(ctx, "product:42", "fifo")
	Info(ctx, "valuation computed", "records", 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "product:42", fields["scope"])
	assert.Equal(t, "fifo", fields["method"])
	assert.EqualValues(t, 3, fields["records"])
}

func TestWithFields_TraceAddedOnce(t *testing.T) {
	l, logs := observed()
	ctx := WithLogger(context.Background(), l)
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})

	ctx = WithFields(ctx, "step", "load")
	ctx = WithFields(ctx, "attempt", 2)
	Warn(ctx, "retrying")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	traceFields := 0
	for _, f := range entry.Context {
		if f.Key == "trace_id" {
			traceFields++
		}
	}
	assert.Equal(t, 1, traceFields)
	assert.Equal(t, "load", entry.ContextMap()["step"])
}
