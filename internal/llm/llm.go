// Package llm asks an OpenAI-compatible model to review exam notes.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/examtrainer/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model produces no usable feedback.
var ErrEmptyResponse = errors.New("LLM returned no feedback")

// Review is the model's verdict on a set of notes.
type Review struct {
	Feedback string `json:"feedback"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks that the endpoint answers by listing its models.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// ReviewNotes asks the model for short feedback on the student's notes.
// The feedback is written in language, e.g. "English".
func (c *Client) ReviewNotes(ctx context.Context, q model.Question, notes, language string) (*Review, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildReviewSystemPrompt(q, language)},
			{Role: openai.ChatMessageRoleUser, Content: notes},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var review Review
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if strings.TrimSpace(review.Feedback) == "" {
		return nil, ErrEmptyResponse
	}
	return &review, nil
}

func buildReviewSystemPrompt(q model.Question, language string) string {
	var sb strings.Builder
	sb.WriteString("You are an exam examiner. A student prepared notes for an oral answer to this question:\n\n")
	if t := q.Title(); t != "" {
		sb.WriteString("QUESTION: " + t + "\n\n")
	}
	if b := q.Body(); b != "" {
		sb.WriteString("DETAILS:\n" + b + "\n\n")
	}
	if cps := q.Checkpoints(); len(cps) > 0 {
		sb.WriteString("KEY POINTS THE ANSWER SHOULD COVER:\n")
		for _, cp := range cps {
			sb.WriteString("- " + cp + "\n")
		}
		sb.WriteString("\n")
	}
	if e := q.Explanation(); e != "" {
		sb.WriteString("REFERENCE EXPLANATION (not shown to student):\n" + e + "\n\n")
	}

	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Point out missing key points and factual mistakes.\n")
	sb.WriteString("- Keep the feedback under 120 words.\n")
	fmt.Fprintf(&sb, "- Write the feedback in %s.\n", language)
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"feedback": "<brief feedback>"}`)
	sb.WriteString("\n")

	return sb.String()
}
