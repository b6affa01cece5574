// Package ai talks to an OpenAI-compatible chat-completions gateway.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"productboards-backend/internal/metrics"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Turn is one role+content entry of a transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is an assistant reply.
type Completion struct {
	Content  string
	Metadata map[string]any
}

// ExtractedProduct is what the gateway could read off a retailer page.
type ExtractedProduct struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
	Currency string   `json:"currency,omitempty"`
	ImageURL *string  `json:"image_url,omitempty"`
	Retailer *string  `json:"retailer,omitempty"`
}

// InsightItem is one product summarised for a board insight.
type InsightItem struct {
	Name  string
	Price *float64
}

// Client is the AI collaborator. Every error it returns satisfies errors.Is(err, ErrUnavailable).
type Client interface {
	Chat(ctx context.Context, turns []Turn) (*Completion, error)
	ExtractProduct(ctx context.Context, url string) (*ExtractedProduct, error)
	ProductNote(ctx context.Context, name string, price *float64) (string, error)
	BoardInsight(ctx context.Context, items []InsightItem) (string, error)
}

// AnnotateImage prefixes the latest user turn with a reference to a shared image.
// turns is not modified; a copy is returned.
func AnnotateImage(turns []Turn, imageRef string) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	if imageRef == "" {
		return out
	}
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == openai.ChatMessageRoleUser {
			out[i].Content = fmt.Sprintf("[User shared an image: %s]\n\n%s", imageRef, out[i].Content)
			break
		}
	}
	return out
}

// Config configures an OpenAIClient.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration // Upper bound for a single call; a shorter caller deadline wins
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// OpenAIClient implements Client with go-openai.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
}

var _ Client = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg Config) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
		metrics: cfg.Metrics,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req.Model = c.model
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		err = classify(op, err)
		slog.Error("AI call failed", "component", "ai", "op", op, "kind", Kind(err), "error", err)
	}
	c.metrics.ObserveAICall(op, Kind(err), time.Since(start))
	return resp, err
}

// Chat sends the transcript behind the assistant system prompt and returns the reply.
// An empty reply is replaced with a fixed apology rather than treated as a failure.
func (c *OpenAIClient) Chat(ctx context.Context, turns []Turn) (*Completion, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	resp, err := c.complete(ctx, "chat", openai.ChatCompletionRequest{Messages: msgs})
	if err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		content = fallbackReply
	}
	return &Completion{Content: content, Metadata: map[string]any{}}, nil
}

// ExtractProduct forces the extract_product tool call and decodes its arguments.
func (c *OpenAIClient) ExtractProduct(ctx context.Context, url string) (*ExtractedProduct, error) {
	req := openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Extract product info from this URL: " + url},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        extractToolName,
				Description: "Extract product details from URL",
				Parameters:  extractToolSchema,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: extractToolName},
		},
	}

	resp, err := c.complete(ctx, "extract_product", req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, malformed("extract_product", errors.New("no product data extracted"))
	}

	var product ExtractedProduct
	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), &product); err != nil {
		return nil, malformed("extract_product", errors.Wrap(err, "decode tool arguments"))
	}
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return nil, malformed("extract_product", errors.New("product name missing"))
	}
	if product.Currency == "" {
		product.Currency = "INR"
	}
	return &product, nil
}

// ProductNote asks for a short neutral note. An empty answer yields an empty string.
func (c *OpenAIClient) ProductNote(ctx context.Context, name string, price *float64) (string, error) {
	user := "Product: " + name
	if price != nil && *price != 0 {
		user += " at ₹" + formatPrice(*price)
	}
	resp, err := c.complete(ctx, "product_note", openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: noteSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BoardInsight asks for a one or two sentence insight about a list of products.
func (c *OpenAIClient) BoardInsight(ctx context.Context, items []InsightItem) (string, error) {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		line := "- " + it.Name
		if it.Price != nil && *it.Price != 0 {
			line += " (₹" + formatPrice(*it.Price) + ")"
		}
		lines = append(lines, line)
	}

	resp, err := c.complete(ctx, "board_insight", openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: insightSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Give a brief insight about this shopping board:\n" + strings.Join(lines, "\n")},
		},
	})
	if err != nil {
		return "", err
	}
	insight := ""
	if len(resp.Choices) > 0 {
		insight = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if insight == "" {
		insight = "No insight available"
	}
	return insight, nil
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
