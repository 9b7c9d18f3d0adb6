// Package chat produces grounded assistant replies over stored sessions.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lorebot/lore/internal/retrieval"
	"github.com/lorebot/lore/internal/session"
)

// maxTitleWords caps how much of the first message becomes the session title.
const maxTitleWords = 8

const groundedPrompt = `You are a helpful assistant that answers using the reference passages below.
Each passage is numbered; cite the passages you rely on by their bracketed number, like [1].
If the passages do not contain the answer, say so plainly instead of guessing.

Reference passages:

%s`

const ungroundedPrompt = `You are a helpful assistant. No reference material matched this question,
so answer from general knowledge and say when you are unsure.`

// Retriever supplies grounding context for a query. *retrieval.Retriever
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) (*retrieval.Result, error)
}

// Input is one user turn. An empty SessionID starts a new session.
type Input struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// Output is the assistant's reply plus the references that grounded it.
type Output struct {
	SessionID  string                `json:"sessionId"`
	Response   string                `json:"response"`
	References []retrieval.Reference `json:"references"`
}

// Service answers chat turns: resolve the session, retrieve grounding
// context, call the chat model, persist both sides of the exchange.
type Service struct {
	store     *session.Store
	retriever Retriever
	llm       *openai.Client
	model     string
	logger    *slog.Logger
}

// NewService creates a chat service. model is the chat model identifier
// passed through to the backend.
func NewService(store *session.Store, retriever Retriever, llm *openai.Client, model string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		retriever: retriever,
		llm:       llm,
		model:     model,
		logger:    logger,
	}
}

// NewOllamaClient builds a chat client against an Ollama server's
// OpenAI-compatible surface. Ollama ignores the key, but the client
// refuses to start without one.
func NewOllamaClient(baseURL string) *openai.Client {
	client := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/v1"),
		option.WithAPIKey("ollama"),
	)
	return &client
}

// Chat answers one user turn and returns the full response.
func (s *Service) Chat(ctx context.Context, in Input) (*Output, error) {
	prep, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	resp, err := s.llm.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: prep.messages,
		Model:    openai.ChatModel(s.model),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return s.finish(ctx, prep, in.Message, resp.Choices[0].Message.Content)
}

// ChatStream answers one user turn, forwarding response deltas to onDelta
// as they arrive. The accumulated response is persisted like a normal
// turn once the stream ends. An error from onDelta cancels the turn.
func (s *Service) ChatStream(ctx context.Context, in Input, onDelta func(delta string) error) (*Output, error) {
	prep, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	stream := s.llm.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: prep.messages,
		Model:    openai.ChatModel(s.model),
	})
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onDelta(delta); err != nil {
			return nil, fmt.Errorf("forward delta: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}
	if len(acc.Choices) == 0 {
		return nil, fmt.Errorf("chat stream returned no choices")
	}

	return s.finish(ctx, prep, in.Message, acc.Choices[0].Message.Content)
}

type prepared struct {
	sess       *session.Session
	messages   []openai.ChatCompletionMessageParamUnion
	references []retrieval.Reference
}

// prepare resolves the session, loads its history, retrieves grounding
// context, and assembles the model request. A retrieval failure is a hard
// failure: answering as if the corpus were empty would silently drop
// grounding whenever the embedding service blips.
func (s *Service) prepare(ctx context.Context, in Input) (*prepared, error) {
	sess, err := s.resolveSession(ctx, in)
	if err != nil {
		return nil, err
	}

	history, err := s.store.Messages(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	retrieved, err := s.retriever.Retrieve(ctx, in.Message, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if retrieved.ContextText != "" {
		messages = append(messages, openai.SystemMessage(fmt.Sprintf(groundedPrompt, retrieved.ContextText)))
	} else {
		s.logger.Debug("answering without grounding context", "session", sess.ID)
		messages = append(messages, openai.SystemMessage(ungroundedPrompt))
	}
	for _, msg := range history {
		if msg.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(in.Message))

	return &prepared{
		sess:       sess,
		messages:   messages,
		references: retrieved.References,
	}, nil
}

func (s *Service) resolveSession(ctx context.Context, in Input) (*session.Session, error) {
	if in.SessionID != "" {
		sess, err := s.store.GetSession(ctx, in.SessionID)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}

	sess, err := s.store.CreateSession(ctx, deriveTitle(in.Message))
	if err != nil {
		return nil, err
	}
	s.logger.Info("created session", "session", sess.ID)
	return sess, nil
}

// finish persists the exchange and assembles the caller-facing output.
func (s *Service) finish(ctx context.Context, prep *prepared, userMessage, response string) (*Output, error) {
	if _, err := s.store.AppendMessage(ctx, prep.sess.ID, "user", userMessage); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	if _, err := s.store.AppendMessage(ctx, prep.sess.ID, "assistant", response); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	s.logger.Info("chat turn complete",
		"session", prep.sess.ID,
		"references", len(prep.references),
		"response_len", len(response))

	return &Output{
		SessionID:  prep.sess.ID,
		Response:   response,
		References: prep.references,
	}, nil
}

// deriveTitle names a new session after the first words of its opening
// message.
func deriveTitle(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return "New session"
	}
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
		return strings.Join(words, " ") + "…"
	}
	return strings.Join(words, " ")
}
