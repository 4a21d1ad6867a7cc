package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_Levels(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, NewWithOutput(&bytes.Buffer{}, in).GetLevel(), in)
	}
}

func TestNewWithOutput_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, "info")

	l.WithField("op", "test").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["op"])
	assert.Equal(t, "info", entry["level"])
}
