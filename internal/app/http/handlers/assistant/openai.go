package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type openAIChatRequest struct {
	Model      string              `json:"model"`
	Messages   []openAIChatMessage `json:"messages"`
	MaxTokens  int                 `json:"max_completion_tokens,omitempty"`
	Stream     bool                `json:"stream,omitempty"`
	Tools      []openAITool        `json:"tools,omitempty"`
	ToolChoice interface{}         `json:"tool_choice,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (s *Service) newOpenAIRequest(ctx context.Context, path string, payload interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	urlStr := strings.TrimRight(s.cfg.OpenAI.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.OpenAI.APIKey)
	return req, nil
}

func (s *Service) postOpenAI(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	req, err := s.newOpenAIRequest(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}

// chatCompletion runs a plain completion and returns the message content.
func (s *Service) chatCompletion(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	payload := openAIChatRequest{
		Model: model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	}
	raw, err := s.postOpenAI(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return "", err
	}
	var out openAIChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty openai response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// functionCompletion forces the interaction's function-call contract and
// returns the raw arguments JSON.
func (s *Service) functionCompletion(ctx context.Context, ic interactionConfig, system, user string) (string, error) {
	payload := openAIChatRequest{
		Model: s.cfg.OpenAI.Model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: ic.maxTokens,
		Tools: []openAITool{{
			Type:     "function",
			Function: openAIToolFunction{Name: ic.schemaName, Parameters: json.RawMessage(ic.schema)},
		}},
		ToolChoice: map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": ic.schemaName},
		},
	}
	raw, err := s.postOpenAI(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return "", err
	}
	var out openAIChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || len(out.Choices[0].Message.ToolCalls) == 0 {
		return "", errors.New("openai response has no tool call")
	}
	return out.Choices[0].Message.ToolCalls[0].Function.Arguments, nil
}

// streamCompletion runs the payload with stream=true and invokes onDelta
// for every content or tool-call-arguments fragment, in arrival order.
func (s *Service) streamCompletion(ctx context.Context, payload openAIChatRequest, onDelta func(string)) error {
	payload.Stream = true
	req, err := s.newOpenAIRequest(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		for _, c := range chunk.Choices {
			if c.Delta.Content != "" {
				onDelta(c.Delta.Content)
			}
			for _, tc := range c.Delta.ToolCalls {
				if tc.Function.Arguments != "" {
					onDelta(tc.Function.Arguments)
				}
			}
		}
	}
	return scanner.Err()
}

func (s *Service) embedding(ctx context.Context, input string) ([]float64, error) {
	raw, err := s.postOpenAI(ctx, "/v1/embeddings", openAIEmbeddingRequest{
		Model: s.cfg.OpenAI.EmbeddingModel,
		Input: input,
	})
	if err != nil {
		return nil, err
	}
	var out openAIEmbeddingResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return out.Data[0].Embedding, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "json") {
		s = strings.TrimSpace(s[4:])
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
