package assistant

import (
	"context"

	"go.uber.org/zap"
)

// collectContext gathers the per-customer context fragments in prompt slot
// order. Sub-query failures drop their fragment and never abort collection.
func (s *Service) collectContext(ctx context.Context, log *zap.Logger, store, clientID string) []string {
	var out []string

	customer, err := s.events.NewCustomer(ctx, store, clientID)
	if err != nil {
		log.Warn("context customer lookup failed", zap.Error(err))
	} else {
		out = append(out, customer.Message)
		if customer.IsNew {
			return out
		}
	}

	cart, err := s.events.CartContents(ctx, store, clientID)
	if err != nil {
		log.Warn("context cart lookup failed", zap.Error(err))
	} else if cart.HasItems {
		out = append(out, cart.Message)
	}

	viewed, err := s.events.RecentlyViewed(ctx, store, clientID, s.cfg.Assistant.RecentlyViewedLimit)
	if err != nil {
		log.Warn("context recently viewed lookup failed", zap.Error(err))
	} else if viewed.HasViewed {
		out = append(out, viewed.Message)
	}

	if block := s.bestSellersBlock(ctx, log, store); block != "" {
		out = append(out, block)
	}
	return out
}
