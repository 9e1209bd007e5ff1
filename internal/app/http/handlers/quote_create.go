package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/domain/quote"
	pdfgen "shopwhiz/go_backend/internal/domain/quote/pdf/gofpdf"
)

type CreateQuoteRequest struct {
	Store    string `json:"store"`
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer"`
	Items []struct {
		ProductID string `json:"product_id"`
		VariantID string `json:"variant_id"`
		Qty       int    `json:"qty"`
	} `json:"items"`
}

// CreateQuote renders recommended catalog products into a PDF offer.
// Prices and titles come from the catalog mirror, never from the request.
func (h *Handlers) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Store == "" || len(req.Items) == 0 {
		http.Error(w, "store and items are required", http.StatusBadRequest)
		return
	}

	snap, err := h.Catalog.Snapshot(r.Context(), req.Store)
	if err != nil {
		h.Log.Warn("quote catalog snapshot failed", zap.Error(err))
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}

	var items []quote.Item
	for _, it := range req.Items {
		if it.Qty <= 0 {
			http.Error(w, "qty must be > 0", http.StatusBadRequest)
			return
		}
		entry, ok := snap.ByID(it.ProductID)
		if !ok {
			http.Error(w, "unknown product "+it.ProductID, http.StatusBadRequest)
			return
		}
		item := quote.Item{Title: entry.Title, Handle: entry.Handle, Qty: it.Qty}
		for _, v := range entry.Variants {
			if it.VariantID == "" || v.ID == it.VariantID {
				item.Variant = v.Title
				item.UnitPrice, _ = strconv.ParseFloat(v.Price, 64)
				break
			}
		}
		items = append(items, item)
	}

	q := quote.Build(req.Store, quote.Customer{Name: req.Customer.Name, Email: req.Customer.Email}, items)

	pdfBytes, err := pdfgen.New().Generate(q)
	if err != nil {
		h.Log.Warn("quote pdf failed", zap.Error(err))
		http.Error(w, "pdf generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+q.Number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
