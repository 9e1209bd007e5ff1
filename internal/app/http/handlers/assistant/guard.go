package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/metrics"
	"shopwhiz/go_backend/internal/domain/catalog"
)

var imageExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
}

type verdict struct {
	pick  ProductPick
	valid bool
}

// invokeGuarded drives one invocation through the invoke/validate loop.
// The retry budget is shared between structural failures and RETRY-severity
// hallucinations; exhausting it is a terminal error, never a partial reply.
func (s *Service) invokeGuarded(ctx context.Context, log *zap.Logger, ic interactionConfig, p promptSpec, store string, snap *catalog.Snapshot) (*ModelReply, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(ic.schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	for attempt := 0; attempt <= s.cfg.Assistant.RetryBudget; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 {
			metrics.ModelRetries.Inc()
		}

		metrics.ModelInvocations.Inc()
		raw, err := s.functionCompletion(ctx, ic, p.system, p.user)
		if err != nil {
			log.Warn("model call failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		raw = stripCodeFences(raw)

		result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
		if err != nil || !result.Valid() {
			log.Warn("reply failed schema validation", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		var reply ModelReply
		if err := json.Unmarshal([]byte(raw), &reply); err != nil {
			log.Warn("reply decode failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		if ic.severity == SeverityNone || len(reply.Products) == 0 {
			return &reply, nil
		}

		verdicts := s.validateProducts(ctx, log, store, snap, reply.Products)
		invalid := 0
		for _, v := range verdicts {
			if !v.valid {
				invalid++
			}
		}
		if invalid == 0 {
			return &reply, nil
		}
		metrics.HallucinationsDetected.Add(float64(invalid))

		switch ic.severity {
		case SeverityFilter:
			kept := make([]ProductPick, 0, len(verdicts))
			for _, v := range verdicts {
				if v.valid {
					kept = append(kept, v.pick)
				} else {
					log.Info("dropped hallucinated product", zap.String("product_id", v.pick.ProductID))
				}
			}
			metrics.HallucinationsFiltered.Add(float64(invalid))
			reply.Products = kept
			return &reply, nil
		case SeverityFail:
			return nil, fmt.Errorf("%w: %d invalid candidates", ErrHallucination, invalid)
		default: // SeverityRetry
			log.Warn("hallucinated products, retrying",
				zap.Int("attempt", attempt), zap.Int("invalid", invalid))
		}
	}
	return nil, ErrRetriesExceeded
}

// validateProducts tags every candidate. A candidate is valid only if its
// id resolves in the snapshot, its image passes the CDN allow-list and
// extension check, and its handle still exists via a live lookup.
func (s *Service) validateProducts(ctx context.Context, log *zap.Logger, store string, snap *catalog.Snapshot, picks []ProductPick) []verdict {
	out := make([]verdict, 0, len(picks))
	for _, pick := range picks {
		out = append(out, verdict{pick: pick, valid: s.validateProduct(ctx, log, store, snap, pick)})
	}
	return out
}

func (s *Service) validateProduct(ctx context.Context, log *zap.Logger, store string, snap *catalog.Snapshot, pick ProductPick) bool {
	entry, ok := snap.ByID(pick.ProductID)
	if !ok {
		return false
	}
	if !s.validImageURL(entry.ImageURL) {
		return false
	}
	live, err := s.catalog.IsValidProduct(ctx, store, entry.Handle)
	if err != nil {
		log.Warn("live handle lookup failed", zap.String("handle", entry.Handle), zap.Error(err))
		return false
	}
	return live
}

func (s *Service) validImageURL(u string) bool {
	if !strings.HasPrefix(u, s.cfg.Assistant.CDNHost) {
		return false
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u), "."))
	_, ok := imageExtensions[ext]
	return ok
}
