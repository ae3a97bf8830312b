package baas

import (
	"context"

	"github.com/trezcool/darasa/core/tutor"
)

var _ tutor.Backend = (*Client)(nil)

func (c *Client) Chat(ctx context.Context, token string, messages []tutor.Message) (tutor.Answer, error) {
	var ans tutor.Answer
	err := c.post(ctx, "/ai/chat", token, struct {
		Messages []tutor.Message `json:"messages"`
	}{messages}, &ans)
	return ans, err
}

func (c *Client) SearchAndAnswer(ctx context.Context, token, query string) (tutor.Answer, error) {
	var ans tutor.Answer
	err := c.post(ctx, "/ai/search-and-answer", token, struct {
		Query string `json:"query"`
	}{query}, &ans)
	return ans, err
}
