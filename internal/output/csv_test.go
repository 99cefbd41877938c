package output_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/tenderwatch/internal/domain"
	"github.com/jonesrussell/tenderwatch/internal/output"
)

func TestWriteHeaderAndRows(t *testing.T) {
	records := []domain.TenderRecord{
		{
			Source:    "PLACSP",
			CaseID:    "EXP/2025/1",
			Title:     "Obras de cubierta",
			Authority: "Ayuntamiento",
			Status:    "PUB",
			Amount:    "1.234,56 €",
			CPV:       []string{"09330000", "45261215"},
			Published: "2025-09-23T10:00:00+02:00",
			Updated:   "2025-09-23T11:00:00+02:00",
			Link:      "https://example.org/1",
		},
		{Source: "madrid"},
	}

	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, output.Columns, rows[0])
	assert.Equal(t, []string{
		"PLACSP", "EXP/2025/1", "Obras de cubierta", "Ayuntamiento", "PUB",
		"1.234,56 €", "09330000;45261215",
		"2025-09-23T10:00:00+02:00", "2025-09-23T11:00:00+02:00",
		"https://example.org/1",
	}, rows[1])

	// Missing fields render as empty strings.
	assert.Equal(t, []string{"madrid", "", "", "", "", "", "", "", "", ""}, rows[2])
}

func TestWriteEmptyRecordSet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, output.Columns, rows[0])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.csv")

	records := []domain.TenderRecord{{Source: "PLACSP", CaseID: "EXP/2025/1"}}
	require.NoError(t, output.WriteFile(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "EXP/2025/1")
}
