package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Level
		err      error
	}{
		{name: "Valid", input: "error", expected: ErrorLevel},
		{name: "ValidWithShortcut", input: "warn", expected: WarnLevel},
		{name: "UpperCase", input: "INFO", expected: InfoLevel},
		{name: "MixUpperLowerCase", input: "Debug", expected: DebugLevel},
		{name: "WithPrefix", input: "-Debug", expected: levelUnknown, err: ErrInvalidLevel},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := ParseLevel(test.input)

			assert.Equal(t, test.expected, res)
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "info", Output: &buf}))

	t.Run("Namespace", func(t *testing.T) {
		buf.Reset()
		WithNamespace("cleanup").WithField("pattern", "test-%").Info("nothing to delete")
		out := buf.String()
		assert.Contains(t, out, "nspace=cleanup")
		assert.Contains(t, out, `pattern="test-%"`)
		assert.Contains(t, out, "nothing to delete")
	})

	t.Run("LevelFiltering", func(t *testing.T) {
		buf.Reset()
		log := WithNamespace("request")
		log.Debugf("GET %s", "/bedroom")
		assert.Empty(t, buf.String())
		assert.False(t, log.IsDebug())
	})

	t.Run("Truncate", func(t *testing.T) {
		buf.Reset()
		WithNamespace("request").Warn(strings.Repeat("x", 3*maxLineWidth))
		assert.Contains(t, buf.String(), "[TRUNCATED]")
		assert.Less(t, buf.Len(), 3*maxLineWidth)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		err := Init(Options{Level: "verbose", Output: &buf})
		assert.ErrorIs(t, err, ErrInvalidLevel)
	})
}
