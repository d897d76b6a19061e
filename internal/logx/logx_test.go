package logx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToTerminal(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_AllStyles(t *testing.T) {
	for _, style := range []Style{StyleTerminal, StyleJSON, StyleLogfmt, StyleNoop} {
		logger, err := New(&Config{Style: style, Level: "debug"})
		require.NoError(t, err, "style %q", style)
		require.NotNil(t, logger)
	}
}

func TestNew_UnknownStyle(t *testing.T) {
	_, err := New(&Config{Style: "carrier-pigeon"})
	require.Error(t, err)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "not-a-level"})
	require.Error(t, err)
}
