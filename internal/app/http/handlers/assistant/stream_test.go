package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collectReassembled(t *testing.T, full string, step int) []StreamEvent {
	t.Helper()
	out := make(chan StreamEvent, 256)
	re := newReassembler(out, testSnapshot(), zap.NewNop())
	for i := step; i < len(full); i += step {
		re.feed(full[:i])
	}
	re.finish(full)
	close(out)

	var events []StreamEvent
	for ev := range out {
		events = append(events, ev)
	}
	return events
}

func TestReassemblerOrderingAndIdempotence(t *testing.T) {
	full := `{"plainText":"Here are two options for you","products":[` +
		`{"product_id":"1","recommendation":"Great for summer walks"},` +
		`{"product_id":"2","recommendation":"Matches most outfits"}]}`

	for _, step := range []int{1, 3, 7, 50, len(full)} {
		events := collectReassembled(t, full, step)
		require.NotEmpty(t, events, "step %d", step)

		// split the flat event list into phases on the delimiters
		var (
			textParts  []string
			cards      []ProductCard
			recParts   [][]string
			delimiters int
		)
		phase := "text"
		for _, ev := range events {
			payload := ev.Payload
			switch {
			case payload == ProductDelimiter:
				delimiters++
				phase = "card"
			case payload == RecommendationDelimiter:
				phase = "rec"
			case phase == "text":
				textParts = append(textParts, payload)
			case phase == "card":
				var card ProductCard
				require.NoError(t, json.Unmarshal([]byte(payload), &card), "step %d payload %q", step, payload)
				cards = append(cards, card)
				recParts = append(recParts, nil)
			case phase == "rec":
				recParts[len(recParts)-1] = append(recParts[len(recParts)-1], payload)
			}
		}

		assert.Equal(t, "Here are two options for you", strings.Join(textParts, ""), "step %d", step)
		require.Len(t, cards, 2, "step %d", step)
		assert.Equal(t, "red-shoes", cards[0].Handle)
		assert.Equal(t, "https://cdn.shopify.com/s/files/red-shoes.jpg", cards[0].Image)
		require.Len(t, cards[0].Variants, 1)
		assert.Equal(t, "blue-hat", cards[1].Handle)
		assert.Equal(t, "Great for summer walks", strings.Join(recParts[0], ""))
		assert.Equal(t, "Matches most outfits", strings.Join(recParts[1], ""))
		// transition delimiter plus one closing delimiter per slot
		assert.Equal(t, 3, delimiters, "step %d", step)
	}
}

// Chunk boundaries can land inside a multi-byte rune; the closed-off string
// then decodes with a replacement-rune tail. No replacement bytes may leak
// into the emitted chunks and no trailing text may be lost.
func TestReassemblerSplitRunes(t *testing.T) {
	full := `{"plainText":"hi 😀 thérè","products":[` +
		`{"product_id":"1","recommendation":"schön für Schnee ❄ und Eis"}]}`

	for _, step := range []int{1, 2, 3} {
		events := collectReassembled(t, full, step)

		var textParts, recParts []string
		phase := "text"
		for _, ev := range events {
			switch {
			case ev.Payload == ProductDelimiter:
				phase = "card"
			case ev.Payload == RecommendationDelimiter:
				phase = "rec"
			case phase == "text":
				textParts = append(textParts, ev.Payload)
			case phase == "rec":
				recParts = append(recParts, ev.Payload)
			}
			assert.NotContains(t, ev.Payload, "�", "step %d", step)
		}

		assert.Equal(t, "hi 😀 thérè", strings.Join(textParts, ""), "step %d", step)
		assert.Equal(t, "schön für Schnee ❄ und Eis", strings.Join(recParts, ""), "step %d", step)
	}
}

// Surrogate-pair escapes split across chunks decode to lone-surrogate
// replacement runes until both halves arrive.
func TestReassemblerSplitEscapes(t *testing.T) {
	full := `{"plainText":"smile \ud83d\ude00 now","products":[]}`
	events := collectReassembled(t, full, 1)

	var text strings.Builder
	for _, ev := range events {
		require.NotEqual(t, ProductDelimiter, ev.Payload)
		assert.NotContains(t, ev.Payload, "�")
		text.WriteString(ev.Payload)
	}
	assert.Equal(t, "smile 😀 now", text.String())
}

func TestReassemblerSkipsUnknownProduct(t *testing.T) {
	full := `{"plainText":"ok","products":[` +
		`{"product_id":"999","recommendation":"made up"},` +
		`{"product_id":"2","recommendation":"real one"}]}`

	events := collectReassembled(t, full, 4)

	var cards []ProductCard
	for _, ev := range events {
		if strings.HasPrefix(ev.Payload, "{") {
			var card ProductCard
			require.NoError(t, json.Unmarshal([]byte(ev.Payload), &card))
			cards = append(cards, card)
		}
	}
	require.Len(t, cards, 1)
	assert.Equal(t, "blue-hat", cards[0].Handle)
	for _, ev := range events {
		assert.NotContains(t, ev.Payload, "made up")
	}
}

func TestReassemblerTextOnlyReply(t *testing.T) {
	full := `{"plainText":"We are out of stock, sorry"}`
	events := collectReassembled(t, full, 5)

	var text strings.Builder
	for _, ev := range events {
		require.NotEqual(t, ProductDelimiter, ev.Payload)
		require.NotEqual(t, RecommendationDelimiter, ev.Payload)
		text.WriteString(ev.Payload)
	}
	assert.Equal(t, "We are out of stock, sorry", text.String())
}

// The channel must always end with a terminal End event, even when the
// pipeline fails before the first chunk.
func TestStreamAlwaysEmitsEnd(t *testing.T) {
	svc := newTestService(t, testConfig("http://127.0.0.1:0"),
		&fakeCatalog{snapErr: errors.New("db down")},
		&fakeEvents{}, &fakeMessages{}, &fakeVectors{}, nil)

	var events []StreamEvent
	for ev := range svc.Stream(context.Background(), testRequest(InteractionChat)) {
		events = append(events, ev)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, EventEnd, events[len(events)-1].Kind)
}
