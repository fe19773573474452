package report

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductSales struct {
	ProductID   string
	ProductName string
	Category    string
	Revenue     float64
}

type CategorySales struct {
	Category string
	Revenue  float64
}

type Sales struct {
	SellerEmail string
	Total       float64
	ByProduct   []ProductSales
	ByCategory  []CategorySales
}

// WriteSalesWorkbook writes a two-sheet workbook: per-product revenue and per-category revenue.
func WriteSalesWorkbook(w io.Writer, s Sales) error {
	file := xlsx.NewFile()

	products, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add products sheet: %w", err)
	}
	addRow(products, "Product ID", "Product", "Category", "Revenue")
	for _, p := range s.ByProduct {
		addRow(products, p.ProductID, p.ProductName, p.Category, p.Revenue)
	}
	addRow(products, "", "", "Total", s.Total)

	categories, err := file.AddSheet("Categories")
	if err != nil {
		return fmt.Errorf("add categories sheet: %w", err)
	}
	addRow(categories, "Category", "Revenue")
	for _, c := range s.ByCategory {
		addRow(categories, c.Category, c.Revenue)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetValue(v)
	}
}
