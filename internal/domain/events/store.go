package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopwhiz/go_backend/internal/infra/db/postgres"
)

type CustomerFact struct {
	IsNew   bool
	Message string
}

type CartFact struct {
	HasItems bool
	Message  string
	CartURL  string
}

type ViewedFact struct {
	HasViewed   bool
	Message     string
	ProductURLs []string
}

type BestSeller struct {
	Title  string
	Handle string
	Count  int64
}

// Store answers read-only questions against the analytics event log.
type Store struct {
	db *postgres.DB
}

func NewStore(db *postgres.DB) *Store {
	return &Store{db: db}
}

// NewCustomer reports a customer as new iff at most one event is recorded
// for them in the trailing seven days.
func (st *Store) NewCustomer(ctx context.Context, store, clientID string) (CustomerFact, error) {
	var count int64
	err := st.db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM events
		WHERE store = $1 AND client_id = $2 AND created_at > now() - interval '7 days'`,
		store, clientID).Scan(&count)
	if err != nil {
		return CustomerFact{}, fmt.Errorf("new customer query: %w", err)
	}
	if count <= 1 {
		return CustomerFact{IsNew: true, Message: "This is the first time the customer has visited the store."}, nil
	}
	return CustomerFact{IsNew: false, Message: "The customer has visited the store before."}, nil
}

type cartPayload struct {
	CartURL string `json:"cart_url"`
	Lines   []struct {
		Title    string `json:"title"`
		Quantity int    `json:"quantity"`
	} `json:"lines"`
}

// CartContents returns the most recent cart_viewed event that carries
// populated cart lines.
func (st *Store) CartContents(ctx context.Context, store, clientID string) (CartFact, error) {
	rows, err := st.db.Pool.Query(ctx, `
		SELECT payload FROM events
		WHERE store = $1 AND client_id = $2 AND event_type = 'cart_viewed'
		ORDER BY created_at DESC
		LIMIT 10`, store, clientID)
	if err != nil {
		return CartFact{}, fmt.Errorf("cart query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return CartFact{}, err
		}
		var cart cartPayload
		if err := json.Unmarshal(raw, &cart); err != nil || len(cart.Lines) == 0 {
			continue
		}
		items := make([]string, 0, len(cart.Lines))
		for _, l := range cart.Lines {
			items = append(items, fmt.Sprintf("%s (x%d)", l.Title, l.Quantity))
		}
		msg := "The customer has items in their cart: " + strings.Join(items, ", ") + "."
		if cart.CartURL != "" {
			msg += " Cart URL: " + cart.CartURL
		}
		return CartFact{HasItems: true, Message: msg, CartURL: cart.CartURL}, nil
	}
	if err := rows.Err(); err != nil {
		return CartFact{}, err
	}
	return CartFact{HasItems: false, Message: "The customer's cart is empty."}, nil
}

// RecentlyViewed lists distinct product titles viewed in the trailing seven
// days, most recent first, capped at limit.
func (st *Store) RecentlyViewed(ctx context.Context, store, clientID string, limit int) (ViewedFact, error) {
	rows, err := st.db.Pool.Query(ctx, `
		SELECT DISTINCT ON (payload->>'title') payload->>'title', coalesce(payload->>'url', '')
		FROM events
		WHERE store = $1 AND client_id = $2 AND event_type = 'product_viewed'
		  AND created_at > now() - interval '7 days'
		ORDER BY payload->>'title', created_at DESC`, store, clientID)
	if err != nil {
		return ViewedFact{}, fmt.Errorf("recently viewed query: %w", err)
	}
	defer rows.Close()

	var titles, urls []string
	for rows.Next() {
		var title, url string
		if err := rows.Scan(&title, &url); err != nil {
			return ViewedFact{}, err
		}
		if title == "" || len(titles) >= limit {
			continue
		}
		titles = append(titles, title)
		if url != "" {
			urls = append(urls, url)
		}
	}
	if err := rows.Err(); err != nil {
		return ViewedFact{}, err
	}
	if len(titles) == 0 {
		return ViewedFact{HasViewed: false, Message: "The customer has not viewed any products recently."}, nil
	}
	return ViewedFact{
		HasViewed:   true,
		Message:     "The customer recently viewed: " + strings.Join(titles, ", ") + ".",
		ProductURLs: urls,
	}, nil
}

// BestSellers ranks products by purchase events for the store.
func (st *Store) BestSellers(ctx context.Context, store string, limit int) ([]BestSeller, error) {
	rows, err := st.db.Pool.Query(ctx, `
		SELECT payload->>'title', coalesce(payload->>'handle', ''), count(*) AS purchases
		FROM events
		WHERE store = $1 AND event_type = 'product_purchased'
		GROUP BY 1, 2
		ORDER BY purchases DESC
		LIMIT $2`, store, limit)
	if err != nil {
		return nil, fmt.Errorf("best sellers query: %w", err)
	}
	defer rows.Close()

	var out []BestSeller
	for rows.Next() {
		var bs BestSeller
		if err := rows.Scan(&bs.Title, &bs.Handle, &bs.Count); err != nil {
			return nil, err
		}
		out = append(out, bs)
	}
	return out, rows.Err()
}
