package assistant

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/app/config"
	"shopwhiz/go_backend/internal/domain/catalog"
	"shopwhiz/go_backend/internal/domain/conversation"
	"shopwhiz/go_backend/internal/domain/events"
	"shopwhiz/go_backend/internal/domain/vector"
)

type CatalogSource interface {
	Snapshot(ctx context.Context, store string) (*catalog.Snapshot, error)
	IsValidProduct(ctx context.Context, store, handle string) (bool, error)
}

type EventSource interface {
	NewCustomer(ctx context.Context, store, clientID string) (events.CustomerFact, error)
	CartContents(ctx context.Context, store, clientID string) (events.CartFact, error)
	RecentlyViewed(ctx context.Context, store, clientID string, limit int) (events.ViewedFact, error)
	BestSellers(ctx context.Context, store string, limit int) ([]events.BestSeller, error)
}

type MessageStore interface {
	MessagesByIDs(ctx context.Context, store, clientID string, ids []string) ([]conversation.Turn, error)
	Insert(ctx context.Context, t conversation.Turn) error
	DeleteLoading(ctx context.Context, store, clientID string) error
}

type VectorIndex interface {
	Search(ctx context.Context, store string, vec []float64, topN int) ([]string, error)
	DeleteStore(ctx context.Context, store string) error
	BulkInsert(ctx context.Context, store string, chunks []vector.Chunk) error
}

type Service struct {
	cfg   config.Config
	log   *zap.Logger
	httpc *http.Client

	catalog  CatalogSource
	events   EventSource
	messages MessageStore
	vectors  VectorIndex
	redis    *redis.Client
}

func New(cfg config.Config, log *zap.Logger, cat CatalogSource, ev EventSource, msg MessageStore, vec VectorIndex, rdb *redis.Client, httpClient *http.Client) (*Service, error) {
	if err := validateInteractionConfigs(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		httpc:    httpClient,
		catalog:  cat,
		events:   ev,
		messages: msg,
		vectors:  vec,
		redis:    rdb,
	}, nil
}

func (s *Service) reqLogger(req Request) *zap.Logger {
	return s.log.With(
		zap.String("req", req.RequestUUID),
		zap.String("store", req.Store),
		zap.String("client_id", req.ClientID),
		zap.String("interaction", string(req.InteractionType)),
	)
}

// Run executes one synchronous interaction end to end.
func (s *Service) Run(ctx context.Context, req Request) (*ModelReply, error) {
	ic, err := configFor(req.InteractionType)
	if err != nil {
		return nil, err
	}
	log := s.reqLogger(req)
	start := time.Now()

	snap, err := s.catalog.Snapshot(ctx, req.Store)
	if err != nil {
		return nil, err
	}

	contextLines := s.collectContext(ctx, log, req.Store, req.ClientID)
	mem := s.loadMemory(ctx, log, req)
	productText, err := s.retrieve(ctx, log, ic, req.Store, req.Input, snap)
	if err != nil {
		return nil, err
	}

	p := compose(ic, contextLines, mem, productText, req.Input)

	var reply *ModelReply
	if ic.schema == "" {
		content, err := s.chatCompletion(ctx, s.cfg.OpenAI.Model, p.system, p.user, ic.maxTokens)
		if err != nil {
			return nil, err
		}
		reply = &ModelReply{PlainText: content}
	} else {
		reply, err = s.invokeGuarded(ctx, log, ic, p, req.Store, snap)
		if err != nil {
			return nil, err
		}
	}

	s.persistTurns(ctx, log, req, reply)
	log.Info("assistant done",
		zap.Int("products", len(reply.Products)),
		zap.Duration("took", time.Since(start)))
	return reply, nil
}

// Stream executes one streaming interaction. The returned channel always
// ends with an End event and is then closed, whatever happens upstream.
func (s *Service) Stream(ctx context.Context, req Request) <-chan StreamEvent {
	out := make(chan StreamEvent, 64)
	go func() {
		defer close(out)
		defer func() {
			out <- StreamEvent{Kind: EventEnd}
		}()
		s.runStream(ctx, req, out)
	}()
	return out
}

func (s *Service) runStream(ctx context.Context, req Request, out chan<- StreamEvent) {
	ic, err := configFor(req.InteractionType)
	if err != nil {
		s.log.Warn("stream rejected", zap.Error(err))
		return
	}
	log := s.reqLogger(req)

	snap, err := s.catalog.Snapshot(ctx, req.Store)
	if err != nil {
		log.Warn("stream catalog snapshot failed", zap.Error(err))
		return
	}

	contextLines := s.collectContext(ctx, log, req.Store, req.ClientID)
	mem := s.loadMemory(ctx, log, req)
	productText, err := s.retrieve(ctx, log, ic, req.Store, req.Input, snap)
	if err != nil {
		log.Warn("stream retrieval failed", zap.Error(err))
		return
	}

	p := compose(ic, contextLines, mem, productText, req.Input)

	if ic.schema == "" {
		// Greeting-style interactions forward raw deltas verbatim.
		var full strings.Builder
		payload := openAIChatRequest{
			Model: s.cfg.OpenAI.Model,
			Messages: []openAIChatMessage{
				{Role: "system", Content: p.system},
				{Role: "user", Content: p.user},
			},
			MaxTokens: ic.maxTokens,
		}
		err := s.streamCompletion(ctx, payload, func(delta string) {
			full.WriteString(delta)
			emit(out, delta)
		})
		if err != nil {
			log.Warn("greeting stream failed", zap.Error(err))
			return
		}
		s.persistTurns(ctx, log, req, &ModelReply{PlainText: full.String()})
		return
	}

	payload := openAIChatRequest{
		Model: s.cfg.OpenAI.Model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: p.system},
			{Role: "user", Content: p.user},
		},
		MaxTokens: ic.maxTokens,
		Tools: []openAITool{{
			Type:     "function",
			Function: openAIToolFunction{Name: ic.schemaName, Parameters: []byte(ic.schema)},
		}},
		ToolChoice: map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": ic.schemaName},
		},
	}

	re := newReassembler(out, snap, log)
	var buf strings.Builder
	err = s.streamCompletion(ctx, payload, func(delta string) {
		buf.WriteString(delta)
		re.feed(buf.String())
	})
	re.finish(buf.String())
	if err != nil {
		log.Warn("stream failed", zap.Error(err))
		return
	}

	if final := tryParsePartial(buf.String()); final != nil {
		reply := &ModelReply{PlainText: final.PlainText}
		for _, p := range final.Products {
			reply.Products = append(reply.Products, ProductPick{ProductID: p.ProductID, Recommendation: p.Recommendation})
		}
		s.persistTurns(ctx, log, req, reply)
	}
}

// persistTurns records the user input and the final accepted reply.
// Intermediate retries are never written.
func (s *Service) persistTurns(ctx context.Context, log *zap.Logger, req Request, reply *ModelReply) {
	now := time.Now()
	turns := []conversation.Turn{
		{
			ID:        uuid.NewString(),
			Store:     req.Store,
			ClientID:  req.ClientID,
			Sender:    conversation.SenderUser,
			Type:      conversation.TypeText,
			Content:   req.Input,
			CreatedAt: now,
		},
		{
			ID:        uuid.NewString(),
			Store:     req.Store,
			ClientID:  req.ClientID,
			Sender:    conversation.SenderAI,
			Type:      conversation.TypeText,
			Content:   replyContent(reply),
			CreatedAt: now.Add(time.Millisecond),
		},
	}
	for _, t := range turns {
		if err := s.messages.Insert(ctx, t); err != nil {
			log.Warn("persist turn failed", zap.String("sender", t.Sender), zap.Error(err))
		}
	}

	// the widget shows a loading placeholder until the real reply lands
	if err := s.messages.DeleteLoading(ctx, req.Store, req.ClientID); err != nil {
		log.Warn("clear loading placeholder failed", zap.Error(err))
	}
}

func replyContent(reply *ModelReply) string {
	if reply.PlainText != "" {
		return reply.PlainText
	}
	if reply.FirstHint != "" {
		return strings.Join([]string{reply.FirstHint, reply.SecondHint, reply.ThirdHint}, "\n")
	}
	return ""
}
