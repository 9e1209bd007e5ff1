package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bestSellerKeyPrefix = "bestsellers:"

// bestSellersBlock renders the ranked best-seller list for the store,
// cached in redis for a day so the ranking query runs at most daily.
func (s *Service) bestSellersBlock(ctx context.Context, log *zap.Logger, store string) string {
	key := bestSellerKeyPrefix + store

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			return cached
		}
		if !errors.Is(err, redis.Nil) {
			log.Warn("best sellers cache read failed", zap.Error(err))
		}
	}

	sellers, err := s.events.BestSellers(ctx, store, s.cfg.Assistant.BestSellerLimit)
	if err != nil {
		log.Warn("best sellers query failed", zap.Error(err))
		return ""
	}
	if len(sellers) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Best sellers in this store:")
	for i, bs := range sellers {
		fmt.Fprintf(&b, " %d. %s", i+1, bs.Title)
	}
	block := b.String()

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, block, s.cfg.Assistant.BestSellerTTL).Err(); err != nil {
			log.Warn("best sellers cache write failed", zap.Error(err))
		}
	}
	return block
}
