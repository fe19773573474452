package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func TestWriteSalesWorkbook(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteSalesWorkbook(&buf, Sales{
		SellerEmail: "bob@example.com",
		Total:       250,
		ByProduct: []ProductSales{
			{ProductID: "p1", ProductName: "rice", Category: "grain", Revenue: 200},
			{ProductID: "p2", ProductName: "mango", Category: "fruit", Revenue: 50},
		},
		ByCategory: []CategorySales{
			{Category: "grain", Revenue: 200},
			{Category: "fruit", Revenue: 50},
		},
	})
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	products := f.Sheet["Products"]
	require.NotNil(t, products)
	require.Len(t, products.Rows, 4)
	assert.Equal(t, "Product ID", products.Rows[0].Cells[0].Value)
	assert.Equal(t, "rice", products.Rows[1].Cells[1].Value)
	revenue, err := products.Rows[1].Cells[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 200, revenue, 1e-9)
	assert.Equal(t, "Total", products.Rows[3].Cells[2].Value)

	categories := f.Sheet["Categories"]
	require.NotNil(t, categories)
	require.Len(t, categories.Rows, 3)
	assert.Equal(t, "fruit", categories.Rows[2].Cells[0].Value)
}

func TestWriteSalesWorkbook_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSalesWorkbook(&buf, Sales{SellerEmail: "bob@example.com"}))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Sheet["Products"].Rows, 2)
	assert.Len(t, f.Sheet["Categories"].Rows, 1)
}
