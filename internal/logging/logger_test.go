package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, false, "json").WithComponent("pipeline").WithQuestion(3, "firearm-binge-distress")
	l.LogPipeline(1, 2, nil, 15*time.Millisecond)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Pipeline completed", entry["msg"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.Equal(t, float64(3), entry["question"])
	assert.Equal(t, "firearm-binge-distress", entry["slug"])
	assert.Equal(t, float64(2), entry["warnings"])
}

func TestDebugGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, false, "text")
	l.LogLoad("health.csv", 10, []string{"group_name"}, time.Second)
	assert.Contains(t, buf.String(), "Dataset loaded")
	assert.NotContains(t, buf.String(), "group_name")

	buf.Reset()
	l = NewWithWriter(&buf, true, "text")
	l.LogLoad("health.csv", 10, []string{"group_name"}, time.Second)
	assert.Contains(t, buf.String(), "group_name")
}

func TestPipelineFailureIsError(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, false, "text").LogPipeline(0, 0, errors.New("unknown metric"), 0)
	out := buf.String()
	assert.True(t, strings.Contains(out, "level=ERROR"), out)
	assert.Contains(t, out, "unknown metric")
}
