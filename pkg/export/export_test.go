package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledger() Dataset {
	return Dataset{
		Title:   "Purchase ledger",
		Headers: []string{"ID", "Buyer", "Amount"},
		Rows: [][]string{
			{"p-1", "Abebe, Kebede", "500.00"},
			{"p-2", "Sara", "150"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVExporterQuotesCells(t *testing.T) {
	out, err := NewCSVExporter().Render(ledger())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Buyer,Amount", lines[0])
	assert.Equal(t, `p-1,"Abebe, Kebede",500.00`, lines[1])
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := ledger()
	data.Rows = append(data.Rows, []string{"only-one"})
	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(data)
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	data := ledger()
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, []string{"p-x", strings.Repeat("long buyer name ", 10), "1"})
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
