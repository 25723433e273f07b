package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name:     "object",
			data:     map[string]any{"status": "Current", "rows": 42},
			expected: "{\n  \"rows\": 42,\n  \"status\": \"Current\"\n}\n",
		},
		{
			name:     "array",
			data:     []string{"BLZ", "GTM"},
			expected: "[\n  \"BLZ\",\n  \"GTM\"\n]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, tt.data))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, make(chan int))
	assert.ErrorContains(t, err, "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		rows     [][]string
		expected string
	}{
		{
			name:     "rows",
			header:   []string{"table", "status"},
			rows:     [][]string{{"RBP_fcs", "Current"}, {"RBP_pou", "Stale"}},
			expected: "table,status\nRBP_fcs,Current\nRBP_pou,Stale\n",
		},
		{
			name:     "empty rows",
			header:   []string{"col1", "col2"},
			expected: "col1,col2\n",
		},
		{
			name:     "values with commas",
			header:   []string{"category"},
			rows:     [][]string{{"Food Security, Ext"}},
			expected: "category\n\"Food Security, Ext\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, tt.header, func(w *csv.Writer) error {
				for _, row := range tt.rows {
					if err := w.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}

	t.Run("row error", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, []string{"col"}, func(*csv.Writer) error { return assert.AnError })
		assert.Equal(t, assert.AnError, err)
	})
}

func TestWriteWithFile(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(path, func(w io.Writer) error {
			_, err := w.Write([]byte("content"))
			return err
		}, "Wrote text")
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "content", string(content))
	})

	t.Run("writer error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		err := writeWithFile(path, func(io.Writer) error { return assert.AnError }, "Wrote text")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		err := writeWithFile("/nonexistent/path/file.txt", func(io.Writer) error { return nil }, "Wrote text")
		assert.Error(t, err)
	})
}

func TestFormatters(t *testing.T) {
	ts := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	age := 5
	fired := int64(3)

	assert.Equal(t, "2025-06-10T14:00:00Z", formatTime(&ts, ""))
	assert.Equal(t, "", formatTime(nil, ""))
	assert.Equal(t, "2025-06-10", formatDate(&ts))
	assert.Equal(t, "-", formatDate(nil))
	assert.Equal(t, "5", formatAge(&age, "-"))
	assert.Equal(t, "-", formatAge(nil, "-"))
	assert.Equal(t, "1200", formatRows(1200, false))
	assert.Equal(t, "~1200", formatRows(1200, true))
	assert.Equal(t, "3", formatFired(&fired, ""))
	assert.Equal(t, "", formatFired(nil, ""))
}
