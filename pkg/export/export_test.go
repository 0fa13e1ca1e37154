package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"ID", "Student"},
		Rows: []map[string]string{
			{"ID": "r-1", "Student": "Doe, Jane"},
			{"ID": "r-2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ID,Student\nr-1,\"Doe, Jane\"\nr-2,\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewCSVExporter().Render(Dataset{Headers: []string{"ID", "ID"}})
	assert.ErrorContains(t, err, "duplicate header")
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"Description"},
		Rows:    []map[string]string{{"Description": "=HYPERLINK(\"x\")"}, {"Description": "@SUM(A1)"}, {"Description": "plain"}},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"'=HYPERLINK(""x"")"`, lines[1])
	assert.Equal(t, "'@SUM(A1)", lines[2])
	assert.Equal(t, "plain", lines[3])
}

func TestPDFExporterPaginates(t *testing.T) {
	rows := make([]map[string]string, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, map[string]string{"ID": fmt.Sprintf("r-%d", i), "Description": strings.Repeat("long text ", 10)})
	}
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"ID", "Description"}, Rows: rows}, "Incident Reports")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))
	assert.Equal(t, "a b", truncate("a\n  b"))
	long := truncate(strings.Repeat("x", 100))
	assert.Len(t, []rune(long), pdfMaxCellRune)
	assert.True(t, strings.HasSuffix(long, "..."))
}
