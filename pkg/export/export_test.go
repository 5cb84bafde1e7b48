package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func recapDataset() Dataset {
	return Dataset{
		Title:   "Pré-contrat",
		Headers: []string{"Code", "Module", "Hours"},
		Rows: []map[string]string{
			{"Code": "ALG1", "Module": "Algo I", "Hours": "30"},
			{"Code": "NET", "Module": "Réseaux, bases", "Hours": "12"},
		},
		Totals: map[string]string{"Code": "Total", "Hours": "42"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(recapDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Code,Module,Hours", lines[0])
	assert.Equal(t, `NET,"Réseaux, bases",12`, lines[2])
	assert.Equal(t, "Total,,42", lines[3])
}

func TestExportersRequireHeaders(t *testing.T) {
	for _, format := range []string{"csv", "pdf", "xlsx"} {
		exporter, ok := ForFormat(format)
		require.True(t, ok)
		_, err := exporter.Render(Dataset{})
		assert.Error(t, err, format)
	}
	_, ok := ForFormat("docx")
	assert.False(t, ok)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(recapDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(recapDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Pré-contrat", title)

	header, err := f.GetCellValue(xlsxSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Module", header)

	total, err := f.GetCellValue(xlsxSheet, "C6")
	require.NoError(t, err)
	assert.Equal(t, "42", total)
}
