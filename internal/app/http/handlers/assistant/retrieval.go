package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/metrics"
	"shopwhiz/go_backend/internal/domain/catalog"
	"shopwhiz/go_backend/internal/domain/vector"
)

// noneSentinel is the literal the direct-query strategy asks the model to
// answer when no catalog entry is relevant.
const noneSentinel = "none"

func (s *Service) retrieve(ctx context.Context, log *zap.Logger, ic interactionConfig, store, query string, snap *catalog.Snapshot) ([]string, error) {
	if !ic.useEmbeddings {
		return s.retrieveDirect(ctx, log, query, snap), nil
	}
	return s.retrieveByEmbedding(ctx, log, store, query, snap)
}

// retrieveDirect puts the whole stripped catalog in front of the model and
// asks it to extract what is relevant. Failures degrade to "no product
// context" since the prompt still works without it.
func (s *Service) retrieveDirect(ctx context.Context, log *zap.Logger, query string, snap *catalog.Snapshot) []string {
	if len(snap.Entries) == 0 {
		return nil
	}
	system := "You check whether a customer message is about products in the catalog below. " +
		"If it is, answer with the catalog lines of the relevant products only. " +
		"If nothing is relevant, answer with the single word " + noneSentinel + "."
	user := "Catalog:\n" + snap.Stringified() + "\n\nCustomer message: " + query

	answer, err := s.chatCompletion(ctx, s.cfg.OpenAI.Model, system, user, 400)
	if err != nil {
		log.Warn("direct catalog query failed", zap.Error(err))
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(answer), noneSentinel) {
		return nil
	}
	return []string{answer}
}

// retrieveByEmbedding searches the store's vector index; an empty result is
// treated as a missing index, which is deleted, rebuilt from the catalog
// snapshot and searched exactly once more.
func (s *Service) retrieveByEmbedding(ctx context.Context, log *zap.Logger, store, query string, snap *catalog.Snapshot) ([]string, error) {
	vec, err := s.embedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := s.vectors.Search(ctx, store, vec, s.cfg.Assistant.TopN)
	if err != nil {
		return nil, err
	}
	if len(chunks) > 0 {
		return chunks, nil
	}

	log.Info("vector index empty, rebuilding", zap.Int("catalog_entries", len(snap.Entries)))
	metrics.IndexRebuilds.Inc()
	if err := s.reindexStore(ctx, store, snap); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	chunks, err = s.vectors.Search(ctx, store, vec, s.cfg.Assistant.TopN)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyIndex, store)
	}
	return chunks, nil
}

func (s *Service) reindexStore(ctx context.Context, store string, snap *catalog.Snapshot) error {
	if err := s.vectors.DeleteStore(ctx, store); err != nil {
		return err
	}
	chunks := make([]vector.Chunk, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		text := e.TextChunk()
		vec, err := s.embedding(ctx, text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", e.ID, err)
		}
		chunks = append(chunks, vector.Chunk{Text: text, Vector: vec})
	}
	return s.vectors.BulkInsert(ctx, store, chunks)
}
