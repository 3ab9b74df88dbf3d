package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, cfg := range []Config{{Level: "debug", Pretty: true}, {Level: "warn"}, {Level: ""}} {
		logger, sync, err := NewLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		require.NotNil(t, sync)
		logger.WithField("level", cfg.Level).Debug("logger built")
	}

	_, _, err := NewLogger(Config{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}
