package assistant

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/metrics"
	"shopwhiz/go_backend/internal/domain/catalog"
)

func emit(out chan<- StreamEvent, payload string) {
	metrics.StreamEvents.Inc()
	out <- StreamEvent{Kind: EventChunk, Payload: payload}
}

type slotState struct {
	started bool
	sentRec string
}

// reassembler turns snapshots of the growing function-call buffer into
// ordered widget events: text deltas, one product card per slot, then
// recommendation deltas, separated by the wire delimiters. Parses are
// diffed against what was already sent, so nothing is ever re-emitted.
type reassembler struct {
	out   chan<- StreamEvent
	cards map[string]ProductCard
	log   *zap.Logger

	sentText string
	textDone bool
	cursor   int
	slots    []slotState
}

// newReassembler builds the product-card mapping once up front; slots are
// resolved against it during streaming without further validation.
func newReassembler(out chan<- StreamEvent, snap *catalog.Snapshot, log *zap.Logger) *reassembler {
	cards := make(map[string]ProductCard, len(snap.Entries))
	for _, e := range snap.Entries {
		cards[e.ID] = cardFromEntry(e)
	}
	return &reassembler{out: out, cards: cards, log: log}
}

// feed is called with the full accumulated buffer after every inbound
// chunk. Unparseable snapshots are skipped; a later chunk will recover.
func (r *reassembler) feed(buf string) {
	if p := tryParsePartial(buf); p != nil {
		r.apply(p, false)
	}
}

// finish flushes whatever the final buffer holds and closes the open slot.
func (r *reassembler) finish(buf string) {
	if p := tryParsePartial(buf); p != nil {
		r.apply(p, true)
	}
}

// stableTail trims the replacement runes a string closed mid-way through a
// multi-byte rune or surrogate escape decodes to. On the final parse the
// buffer is complete and any remaining U+FFFD is genuine content.
func stableTail(s string, final bool) string {
	if final {
		return s
	}
	for strings.HasSuffix(s, "�") {
		s = strings.TrimSuffix(s, "�")
	}
	return s
}

func (r *reassembler) apply(p *partialReply, final bool) {
	if !r.textDone {
		// once products appear the plainText string has closed, so its
		// tail is trustworthy even mid-stream
		text := stableTail(p.PlainText, final || len(p.Products) > 0)
		if len(text) > len(r.sentText) && strings.HasPrefix(text, r.sentText) {
			emit(r.out, text[len(r.sentText):])
			r.sentText = text
		}
		// plainText is complete once the products array starts filling.
		if len(p.Products) == 0 {
			return
		}
		r.textDone = true
		emit(r.out, ProductDelimiter)
	}

	for len(r.slots) < len(p.Products) {
		r.slots = append(r.slots, slotState{})
	}

	for r.cursor < len(p.Products) {
		slot := &r.slots[r.cursor]
		pick := p.Products[r.cursor]

		if !slot.started {
			if pick.ProductID == "" || pick.Recommendation == "" {
				if !final {
					return
				}
				// stream ended before the slot materialized
				r.cursor++
				continue
			}
			card, ok := r.cards[pick.ProductID]
			if !ok {
				r.log.Warn("stream slot references unknown product", zap.String("product_id", pick.ProductID))
				r.cursor++
				continue
			}
			payload, err := json.Marshal(card)
			if err != nil {
				r.cursor++
				continue
			}
			emit(r.out, string(payload))
			emit(r.out, RecommendationDelimiter)
			slot.started = true
		}

		// The slot stays open until a later slot starts populating or the
		// stream ends; either way its recommendation string has closed.
		laterStarted := r.cursor+1 < len(p.Products) && p.Products[r.cursor+1].ProductID != ""

		rec := stableTail(pick.Recommendation, final || laterStarted)
		if len(rec) > len(slot.sentRec) && strings.HasPrefix(rec, slot.sentRec) {
			emit(r.out, rec[len(slot.sentRec):])
			slot.sentRec = rec
		}

		if !laterStarted && !final {
			return
		}
		emit(r.out, ProductDelimiter)
		r.cursor++
	}
}
