package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, "posted %d envelopes", 3)
	Info(&buf, "ingest at %s", "http://localhost:8088")
	Warn(&buf, "dry run")

	out := buf.String()
	assert.Contains(t, out, "✓ posted 3 envelopes")
	assert.Contains(t, out, "ingest at http://localhost:8088")
	assert.Contains(t, out, "⚠ dry run")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, map[string]interface{}{"isTransfer": true}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["isTransfer"])
	assert.Contains(t, buf.String(), "\n  ", "output is indented")
}

func TestYesNo(t *testing.T) {
	assert.Equal(t, "yes", YesNo(true))
	assert.Equal(t, "no", YesNo(false))
}

func TestTable_Render(t *testing.T) {
	table := NewTable([]string{"SKU", "TRAINER"})
	table.AddRow([]string{"PSM-201125-AB", "Alex Brown"})
	table.AddRow([]string{"X", "unknown"})

	var buf bytes.Buffer
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "SKU            TRAINER"))
	assert.True(t, strings.HasPrefix(lines[1], strings.Repeat("-", len("PSM-201125-AB"))))
	assert.True(t, strings.HasPrefix(lines[2], "PSM-201125-AB  Alex Brown"))
	assert.True(t, strings.HasPrefix(lines[3], "X              unknown"))
}
