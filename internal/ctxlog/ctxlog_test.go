package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_DefaultsToGlobal(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
	assert.Same(t, slog.Default(), FromContext(nil)) //nolint:staticcheck
}

func TestWith_AccumulatesAttributes(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = With(ctx, "run_id", "r1")
	ctx = With(ctx, "package", "sys")

	FromContext(ctx).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "run_id=r1")
	assert.Contains(t, out, "package=sys")
	assert.Contains(t, out, "msg=hello")
}
