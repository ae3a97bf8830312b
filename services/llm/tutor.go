package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/tutor"
)

var answerSchema = &Schema{
	Name:        "tutor-answer",
	Description: "An answer to a student's question with the lessons it draws from",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "description": "The answer, in markdown"},
			"sources": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"course": map[string]any{"type": "string"},
						"lesson": map[string]any{"type": "string"},
						"url":    map[string]any{"type": "string"},
					},
					"required":             []any{"course", "lesson", "url"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"message", "sources"},
		"additionalProperties": false,
	},
}

var _ tutor.Model = (*Tutor)(nil)

// Tutor adapts a Provider to the tutor's Model.
type Tutor struct {
	provider  Provider
	maxTokens int
}

func NewTutor(p Provider, maxTokens int) *Tutor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Tutor{provider: p, maxTokens: maxTokens}
}

// Reply continues the conversation. System messages in history are folded into the system prompt.
func (t *Tutor) Reply(ctx context.Context, system string, history []tutor.Message) (string, error) {
	req := Request{System: system, MaxTokens: t.maxTokens, Temperature: 0.3}
	var extra []string
	for _, m := range history {
		switch m.Role {
		case tutor.RoleSystem:
			extra = append(extra, m.Content)
		case tutor.RoleAssistant:
			req.Messages = append(req.Messages, Message{Role: RoleAssistant, Content: m.Content})
		default:
			req.Messages = append(req.Messages, Message{Role: RoleUser, Content: m.Content})
		}
	}
	if len(extra) > 0 {
		req.System = strings.Join(append([]string{system}, extra...), "\n\n")
	}

	resp, err := t.provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Answer asks for a structured answer to a single question.
func (t *Tutor) Answer(ctx context.Context, system, question string) (tutor.Answer, error) {
	resp, err := t.provider.Generate(ctx, Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: question}},
		Schema:      answerSchema,
		MaxTokens:   t.maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return tutor.Answer{}, err
	}

	var ans tutor.Answer
	if err := json.Unmarshal(resp.Content, &ans); err != nil {
		return tutor.Answer{}, errors.Wrap(err, "decoding answer")
	}
	return ans, nil
}
