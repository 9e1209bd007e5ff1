package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/config"
	"shopwhiz/go_backend/internal/domain/catalog"
	"shopwhiz/go_backend/internal/domain/conversation"
	"shopwhiz/go_backend/internal/domain/events"
	"shopwhiz/go_backend/internal/domain/vector"
)

func testConfig(baseURL string) config.Config {
	var cfg config.Config
	cfg.OpenAI = config.OpenAIConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "gpt-test",
		SummaryModel:   "gpt-test-mini",
		EmbeddingModel: "embed-test",
	}
	cfg.Assistant = config.AssistantConfig{
		RetryBudget:         3,
		TopN:                5,
		CDNHost:             "https://cdn.shopify.com/",
		SummaryThreshold:    1500,
		KeepRecentTurns:     6,
		RecentlyViewedLimit: 5,
		BestSellerLimit:     5,
		BestSellerTTL:       24 * time.Hour,
	}
	return cfg
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Entry{
		{
			ID:       "1",
			Title:    "Red Shoes",
			Handle:   "red-shoes",
			ImageURL: "https://cdn.shopify.com/s/files/red-shoes.jpg",
			Variants: []catalog.Variant{{ID: "11", Price: "49.99", ProductID: "1", Title: "Default"}},
		},
		{
			ID:       "2",
			Title:    "Blue Hat",
			Handle:   "blue-hat",
			ImageURL: "https://cdn.shopify.com/s/files/blue-hat.png",
			Variants: []catalog.Variant{{ID: "21", Price: "19.99", ProductID: "2", Title: "Default"}},
		},
		{
			ID:       "3",
			Title:    "Fake Bag",
			Handle:   "fake-bag",
			ImageURL: "https://evil.cdn/x.jpg",
		},
	})
}

type fakeCatalog struct {
	snap    *catalog.Snapshot
	snapErr error
	invalid map[string]bool // handles reported missing by the live lookup
}

func (f *fakeCatalog) Snapshot(ctx context.Context, store string) (*catalog.Snapshot, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return f.snap, nil
}

func (f *fakeCatalog) IsValidProduct(ctx context.Context, store, handle string) (bool, error) {
	return !f.invalid[handle], nil
}

type fakeEvents struct {
	customer    events.CustomerFact
	customerErr error
	cart        events.CartFact
	cartErr     error
	viewed      events.ViewedFact
	viewedErr   error

	sellers      []events.BestSeller
	sellersErr   error
	sellersCalls int
}

func (f *fakeEvents) NewCustomer(ctx context.Context, store, clientID string) (events.CustomerFact, error) {
	return f.customer, f.customerErr
}

func (f *fakeEvents) CartContents(ctx context.Context, store, clientID string) (events.CartFact, error) {
	return f.cart, f.cartErr
}

func (f *fakeEvents) RecentlyViewed(ctx context.Context, store, clientID string, limit int) (events.ViewedFact, error) {
	return f.viewed, f.viewedErr
}

func (f *fakeEvents) BestSellers(ctx context.Context, store string, limit int) ([]events.BestSeller, error) {
	f.sellersCalls++
	return f.sellers, f.sellersErr
}

type fakeMessages struct {
	turns          []conversation.Turn
	err            error
	inserted       []conversation.Turn
	loadingCleared int
}

func (f *fakeMessages) MessagesByIDs(ctx context.Context, store, clientID string, ids []string) ([]conversation.Turn, error) {
	return f.turns, f.err
}

func (f *fakeMessages) Insert(ctx context.Context, t conversation.Turn) error {
	f.inserted = append(f.inserted, t)
	return nil
}

func (f *fakeMessages) DeleteLoading(ctx context.Context, store, clientID string) error {
	f.loadingCleared++
	return nil
}

type fakeVectors struct {
	results     [][]string // consecutive Search results
	searchErr   error
	searchCalls int
	deleteCalls int
	inserted    []vector.Chunk
}

func (f *fakeVectors) Search(ctx context.Context, store string, vec []float64, topN int) ([]string, error) {
	call := f.searchCalls
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if call < len(f.results) {
		return f.results[call], nil
	}
	return nil, nil
}

func (f *fakeVectors) DeleteStore(ctx context.Context, store string) error {
	f.deleteCalls++
	return nil
}

func (f *fakeVectors) BulkInsert(ctx context.Context, store string, chunks []vector.Chunk) error {
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func newTestService(t *testing.T, cfg config.Config, cat CatalogSource, ev EventSource, msg MessageStore, vec VectorIndex, rdb *redis.Client) *Service {
	t.Helper()
	svc, err := New(cfg, zap.NewNop(), cat, ev, msg, vec, rdb, nil)
	require.NoError(t, err)
	return svc
}

func testRequest(t InteractionType) Request {
	return Request{
		Input:           "do you have red shoes",
		Store:           "test-store",
		ClientID:        "client-1",
		RequestUUID:     "req-1",
		InteractionType: t,
	}
}
