package core_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartchat/smartchat-go/pkg/core"
)

func TestNewLoggerWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := core.NewLoggerWithWriter(&buf, core.LogConfig{Level: "warn"})

	logger.Info("hidden")
	logger.Warn("save failed", "user", "62d06eb616")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "save failed")
	assert.Contains(t, out, "user=62d06eb616")
	assert.Contains(t, out, "smartchat")
}

func TestNopLogger(t *testing.T) {
	logger := core.NopLogger()
	logger.Error("nothing happens")
}
