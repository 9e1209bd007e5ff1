package assistant

import (
	"encoding/json"
	"errors"
	"fmt"

	"shopwhiz/go_backend/internal/domain/catalog"
)

type InteractionType string

const (
	InteractionChat          InteractionType = "chat"
	InteractionGreeting      InteractionType = "greeting"
	InteractionEmbedGreeting InteractionType = "embed_greeting"
	InteractionHints         InteractionType = "hints"
)

var allInteractionTypes = []InteractionType{
	InteractionChat,
	InteractionGreeting,
	InteractionEmbedGreeting,
	InteractionHints,
}

// Severity orders hallucination policies from most permissive to most
// strict: NONE < FILTER < RETRY < FAIL. The order is load-bearing: the
// guard compares severities with >.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityFilter
	SeverityRetry
	SeverityFail
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityFilter:
		return "filter"
	case SeverityRetry:
		return "retry"
	case SeverityFail:
		return "fail"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

var (
	ErrRetriesExceeded = errors.New("model retries exceeded")
	ErrHallucination   = errors.New("hallucinated product reference")
	ErrEmptyIndex      = errors.New("store has no indexable catalog")
)

// Delimiters are part of the wire contract with the storefront widget and
// must match it byte for byte.
const (
	ProductDelimiter        = "-----PRODUCT_DELIMITER-----"
	RecommendationDelimiter = "-----RECOMMENDATION_DELIMITER-----"
)

type EventKind int

const (
	EventChunk EventKind = iota
	EventEnd
)

type StreamEvent struct {
	Kind    EventKind
	Payload string
}

type Request struct {
	Input           string          `json:"input"`
	Store           string          `json:"store"`
	ClientID        string          `json:"client_id"`
	RequestUUID     string          `json:"request_uuid"`
	InteractionType InteractionType `json:"interaction_type"`
	MessageIDs      []string        `json:"message_ids"`
}

type Response struct {
	Show  bool        `json:"show"`
	Reply *ModelReply `json:"openai,omitempty"`
}

type ModelReply struct {
	PlainText string        `json:"plainText,omitempty"`
	Products  []ProductPick `json:"products,omitempty"`

	FirstHint  string `json:"first_hint,omitempty"`
	SecondHint string `json:"second_hint,omitempty"`
	ThirdHint  string `json:"third_hint,omitempty"`
}

type ProductPick struct {
	ProductID      string `json:"product_id"`
	Recommendation string `json:"recommendation"`
}

// ProductCard is the payload streamed to the widget when a product slot
// opens; variants come straight from the catalog snapshot.
type ProductCard struct {
	Name     string            `json:"name"`
	Handle   string            `json:"handle"`
	Image    string            `json:"image"`
	Variants []catalog.Variant `json:"variants"`
}

func cardFromEntry(e catalog.Entry) ProductCard {
	return ProductCard{Name: e.Title, Handle: e.Handle, Image: e.ImageURL, Variants: e.Variants}
}

type interactionConfig struct {
	systemPrompt  string
	schemaName    string
	schema        string // JSON schema for the forced function call; empty means plain completion
	useEmbeddings bool
	severity      Severity
	maxTokens     int
}

const chatSchema = `{
	"type": "object",
	"properties": {
		"plainText": {
			"type": "string",
			"description": "Reply to the customer, at most 250 characters."
		},
		"products": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"product_id": {"type": "string"},
					"recommendation": {"type": "string"}
				},
				"required": ["product_id", "recommendation"],
				"additionalProperties": false
			}
		}
	},
	"required": ["plainText"],
	"additionalProperties": false
}`

const hintsSchema = `{
	"type": "object",
	"properties": {
		"first_hint": {"type": "string"},
		"second_hint": {"type": "string"},
		"third_hint": {"type": "string"}
	},
	"required": ["first_hint", "second_hint", "third_hint"],
	"additionalProperties": false
}`

var interactionConfigs = map[InteractionType]interactionConfig{
	InteractionChat: {
		systemPrompt: "You are a friendly sales assistant for an online store. " +
			"Answer in at most 250 characters of plain text. " +
			"Recommend products only from the reference data block; never invent products, prices or attributes. " +
			"When you recommend a product, put its product_id and a one-sentence recommendation into the products array. " +
			"If nothing fits, say so and ask one clarifying question.",
		schemaName:    "assistant_reply",
		schema:        chatSchema,
		useEmbeddings: true,
		severity:      SeverityRetry,
		maxTokens:     600,
	},
	InteractionGreeting: {
		systemPrompt: "You are a friendly sales assistant greeting a shopper who just opened the chat. " +
			"Write one short, warm greeting (under 200 characters) grounded in the customer context. " +
			"Do not list products and do not ask more than one question.",
		useEmbeddings: false,
		severity:      SeverityNone,
		maxTokens:     200,
	},
	InteractionEmbedGreeting: {
		systemPrompt: "You are a sales assistant embedded on a product page. " +
			"Write one short sentence inviting the shopper to ask about the store's products. " +
			"Stay under 150 characters, no product lists.",
		useEmbeddings: false,
		severity:      SeverityNone,
		maxTokens:     150,
	},
	InteractionHints: {
		systemPrompt: "You suggest search queries a shopper could ask a store assistant. " +
			"Produce exactly three short suggested queries based on the customer context and catalog. " +
			"Each hint must differ qualitatively from the other two: different product angle, intent or attribute, " +
			"not rewordings of the same question.",
		schemaName:    "assistant_hints",
		schema:        hintsSchema,
		useEmbeddings: true,
		severity:      SeverityNone,
		maxTokens:     300,
	},
}

func configFor(t InteractionType) (interactionConfig, error) {
	ic, ok := interactionConfigs[t]
	if !ok {
		return interactionConfig{}, fmt.Errorf("unknown interaction type %q", t)
	}
	return ic, nil
}

// validateInteractionConfigs runs at service construction so a missing or
// broken configuration fails startup instead of a live request.
func validateInteractionConfigs() error {
	for _, t := range allInteractionTypes {
		ic, ok := interactionConfigs[t]
		if !ok {
			return fmt.Errorf("no interaction config for %q", t)
		}
		if ic.systemPrompt == "" {
			return fmt.Errorf("interaction config %q has no system prompt", t)
		}
		if ic.schema != "" {
			if ic.schemaName == "" {
				return fmt.Errorf("interaction config %q has a schema but no schema name", t)
			}
			if !json.Valid([]byte(ic.schema)) {
				return fmt.Errorf("interaction config %q has invalid schema JSON", t)
			}
		}
	}
	return nil
}

func (t InteractionType) valid() bool {
	_, ok := interactionConfigs[t]
	return ok
}
