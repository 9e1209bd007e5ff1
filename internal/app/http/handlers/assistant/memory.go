package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"shopwhiz/go_backend/internal/domain/conversation"
)

type memoryState struct {
	summary string
	turns   []conversation.Turn
}

// loadMemory reconstructs the conversation history from the referenced
// message ids and applies the summary-collapse check once. Load failures
// degrade to an empty history.
func (s *Service) loadMemory(ctx context.Context, log *zap.Logger, req Request) *memoryState {
	m := &memoryState{}
	if len(req.MessageIDs) == 0 {
		return m
	}

	turns, err := s.messages.MessagesByIDs(ctx, req.Store, req.ClientID, req.MessageIDs)
	if err != nil {
		log.Warn("history load failed", zap.Error(err))
		return m
	}
	for _, t := range turns {
		switch {
		case t.Sender == conversation.SenderSummary:
			m.summary = t.Content
		case t.Type == conversation.TypeLoading:
			// transient placeholder, never part of the prompt
		default:
			m.turns = append(m.turns, t)
		}
	}

	s.pruneMemory(ctx, log, m)
	return m
}

// pruneMemory collapses older turns into a running summary once the
// estimated token footprint crosses the threshold, keeping the most recent
// turns raw.
func (s *Service) pruneMemory(ctx context.Context, log *zap.Logger, m *memoryState) {
	if estimateTokens(m) < s.cfg.Assistant.SummaryThreshold {
		return
	}
	keep := s.cfg.Assistant.KeepRecentTurns
	if len(m.turns) <= keep {
		return
	}

	older := m.turns[:len(m.turns)-keep]
	summary, err := s.summarize(ctx, m.summary, older)
	if err != nil {
		log.Warn("history summarization failed", zap.Error(err))
		return
	}
	m.summary = summary
	m.turns = m.turns[len(m.turns)-keep:]
	log.Info("history collapsed", zap.Int("summarized_turns", len(older)), zap.Int("kept_turns", keep))
}

// estimateTokens uses the rough 4-chars-per-token heuristic; the threshold
// is a budget guard, not an exact count.
func estimateTokens(m *memoryState) int {
	chars := len(m.summary)
	for _, t := range m.turns {
		chars += len(t.Content)
	}
	return chars / 4
}

func (s *Service) summarize(ctx context.Context, prev string, turns []conversation.Turn) (string, error) {
	var b strings.Builder
	if prev != "" {
		b.WriteString("Previous summary:\n")
		b.WriteString(prev)
		b.WriteString("\n\n")
	}
	b.WriteString("Messages to fold in:\n")
	for _, t := range turns {
		if t.Sender == conversation.SenderAI {
			b.WriteString("Assistant: ")
		} else {
			b.WriteString("Customer: ")
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}

	system := "Summarize the shopping conversation in 3-5 short lines. " +
		"Keep what the customer is looking for, stated requirements, and anything already agreed. Drop pleasantries."
	return s.chatCompletion(ctx, s.cfg.OpenAI.SummaryModel, system, b.String(), 200)
}
