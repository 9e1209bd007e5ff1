package gofpdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"shopwhiz/go_backend/internal/domain/quote"
)

type Generator struct{}

func New() *Generator { return &Generator{} }

func (g *Generator) Generate(q quote.Quote) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Product quote", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Product quote")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("No. %s, %s", q.Number, q.CreatedAt.Format("02 Jan 2006")))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Store: "+q.Store)
	pdf.Ln(6)

	if q.Customer.Name != "" || q.Customer.Email != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Customer: %s %s", q.Customer.Name, q.Customer.Email))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(100, 7, "Product")
	pdf.Cell(40, 7, "Variant")
	pdf.Cell(15, 7, "Qty")
	pdf.Cell(20, 7, "Price")
	pdf.Cell(20, 7, "Total")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range q.Items {
		pdf.Cell(100, 6, trim(it.Title, 55))
		pdf.Cell(40, 6, trim(it.Variant, 22))
		pdf.Cell(15, 6, fmt.Sprintf("%d", it.Qty))
		pdf.Cell(20, 6, fmt.Sprintf("%.2f", it.UnitPrice))
		pdf.Cell(20, 6, fmt.Sprintf("%.2f", it.LineTotal))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Total: %.2f", q.Total))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Generated: %s", time.Now().Format(time.RFC3339)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
