package cli

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	ctx := context.Background()

	logger := SetupLogger("debug", "json")
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = SetupLogger("chatty", "")
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
}
