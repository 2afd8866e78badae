package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, parseLevel(""))
	assert.Equal(t, logrus.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, logrus.InfoLevel, parseLevel("chatty"))
}

func TestLoggerWritesComponentFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "")
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("fetcher").WithFields(Fields{"cycle": 3}).WithError(errors.New("boom")).Warn("fetch failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetcher", line["component"])
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "fetch failed", line["message"])
	assert.Equal(t, "boom", line["error"])
	assert.EqualValues(t, 3, line["cycle"])
	assert.Contains(t, line, "timestamp")
}
