package quote

import (
	"fmt"
	"time"
)

type Quote struct {
	Number    string
	Store     string
	CreatedAt time.Time
	Customer  Customer
	Items     []Item

	Subtotal float64
	Total    float64
}

type Customer struct {
	Name  string
	Email string
}

type Item struct {
	Title     string
	Variant   string
	Handle    string
	Qty       int
	UnitPrice float64
	LineTotal float64
}

// Build assembles a numbered quote from resolved items and computes totals.
func Build(store string, customer Customer, items []Item) Quote {
	q := Quote{
		Number:    fmt.Sprintf("Q-%s", time.Now().Format("20060102-150405")),
		Store:     store,
		CreatedAt: time.Now(),
		Customer:  customer,
	}
	for _, it := range items {
		it.LineTotal = it.UnitPrice * float64(it.Qty)
		q.Items = append(q.Items, it)
		q.Subtotal += it.LineTotal
	}
	q.Total = q.Subtotal
	return q
}
