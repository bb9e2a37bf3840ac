package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Account(ctx))
	assert.Empty(t, TemplateID(ctx))
	assert.Empty(t, Actor(ctx))

	ctx = WithIDs(ctx, "acme", "signup-flow", "tester")
	assert.Equal(t, "acme", Account(ctx))
	assert.Equal(t, "signup-flow", TemplateID(ctx))
	assert.Equal(t, "tester", Actor(ctx))
}

func TestLogWithAddsOnlyPresentIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithAccount(context.Background(), "acme")
	LogWith(ctx, logger).Info("hello")

	out := buf.String()
	assert.Contains(t, out, "account=acme")
	assert.NotContains(t, out, "template_id")
	assert.NotContains(t, out, "actor")
}

func TestCorrelationHandlerInjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithIDs(context.Background(), "acme", "signup-flow", "tester")
	logger.InfoContext(ctx, "saved")

	out := buf.String()
	assert.Contains(t, out, "account=acme")
	assert.Contains(t, out, "template_id=signup-flow")
	assert.Contains(t, out, "actor=tester")

	buf.Reset()
	logger.Info("no context")
	assert.NotContains(t, buf.String(), "account=")
}
