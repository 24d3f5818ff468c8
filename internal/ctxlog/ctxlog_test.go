package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	FromContext(ctx).Info("hello", "round", 1)
	assert.Contains(t, buf.String(), "msg=hello round=1")
}

func TestFromContext_Missing(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
