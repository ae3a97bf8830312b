// Package tutor is the AI tutor Ultra members chat with about the course catalog.
package tutor

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,max=8000"`
}

// Source is a lesson an answer draws from.
type Source struct {
	Course string `json:"course"`
	Lesson string `json:"lesson"`
	URL    string `json:"url"`
}

// Answer is what the hosted AI endpoints send back.
type Answer struct {
	Message core.Text `json:"message"`
	Sources []Source  `json:"sources"`
}

// Reply is the tutor's chat message.
type Reply struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Sources []Source `json:"sources"`
}

func replyFrom(a Answer) Reply {
	sources := a.Sources
	if sources == nil {
		sources = []Source{}
	}
	return Reply{Role: RoleAssistant, Content: string(a.Message), Sources: sources}
}

// ChatRequest is a conversation, oldest message first.
type ChatRequest struct {
	Messages []Message `json:"messages" validate:"required,min=1,max=50,dive"`
}

func (cr *ChatRequest) Validate(validate *validator.Validate) error {
	for i := range cr.Messages {
		cr.Messages[i].Role = core.CleanString(cr.Messages[i].Role, true /* lower */)
		cr.Messages[i].Content = core.CleanString(cr.Messages[i].Content)
	}
	return validate.Struct(cr)
}

// LastUserMessage returns the content of the latest message sent by the user.
func (cr ChatRequest) LastUserMessage() string {
	for i := len(cr.Messages) - 1; i >= 0; i-- {
		if cr.Messages[i].Role == RoleUser {
			return cr.Messages[i].Content
		}
	}
	return ""
}

type SearchRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

func (sr *SearchRequest) Validate(validate *validator.Validate) error {
	sr.Query = core.CleanString(sr.Query)
	return validate.Struct(sr)
}
