package host

import (
	"bytes"
	"encoding/json"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/annoinject/model"
	"github.com/jhump/annoinject/processor"
)

func TestConsoleMessager(t *testing.T) {
	var buf bytes.Buffer
	m := NewConsoleMessager(&buf, false)
	el := &model.Element{Position: token.Position{Filename: "store/store.go", Line: 12, Column: 6}}

	m.PrintMessage(processor.Error, "interfaces cannot be beans", el)
	m.PrintMessage(processor.Warning, "options not recognized by any processor: x", nil)
	m.PrintMessage(processor.Note, "nothing to index", nil)
	m.PrintMessage(processor.Error, "again", nil)

	assert.Equal(t, strings.Join([]string{
		"store/store.go:12:6: error: interfaces cannot be beans",
		"warning: options not recognized by any processor: x",
		"note: nothing to index",
		"error: again",
		"",
	}, "\n"), buf.String())
	assert.Equal(t, 2, m.Errors())
	assert.Equal(t, 1, m.Warnings())
}

func TestConsoleMessager_Color(t *testing.T) {
	var buf bytes.Buffer
	m := NewConsoleMessager(&buf, true)
	m.PrintMessage(processor.Error, "boom", nil)
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "boom")
}

func TestCountingMessager(t *testing.T) {
	inner := &recordingMessager{}
	m := &countingMessager{Messager: inner}
	m.PrintMessage(processor.Warning, "w", nil)
	m.PrintMessage(processor.Error, "e", nil)
	assert.Equal(t, 1, m.errors)
	assert.Equal(t, []string{"warning: w", "error: e"}, inner.messages)

	silent := &countingMessager{}
	silent.PrintMessage(processor.Error, "e", nil)
	assert.Equal(t, 1, silent.errors)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "round", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, float64(2), rec["round"])

	buf.Reset()
	logger = NewLogger("bogus", "text", &buf)
	logger.Debug("hidden")
	logger.Info("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=visible")
}
