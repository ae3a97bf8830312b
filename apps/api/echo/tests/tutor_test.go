package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_tutorApi(t *testing.T) {
	app := setup(t)
	app.baas.on(http.MethodPost, "/ai/chat", http.StatusOK, `{"message":"Goroutines are cheap threads."}`)
	app.baas.on(http.MethodPost, "/ai/search-and-answer", http.StatusOK,
		`{"message":"See the basics.","sources":[{"course":"Go in production","lesson":"Hello","url":"/lessons/hello"}]}`)
	ultraToken := app.token(t, ultra)
	ultraRequired := marshalObj(t, httpErr{Error: "Ultra membership required"})
	question := []byte(`{"messages":[{"role":"user","content":"What is a goroutine?"}]}`)

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/chat", body: question, wantCode: http.StatusUnauthorized},
		{name: "free", method: http.MethodPost, path: "/v1/chat", token: app.token(t, student), body: question, wantCode: http.StatusForbidden, wantData: ultraRequired},
		{name: "pro", method: http.MethodPost, path: "/v1/chat", token: app.token(t, pro), body: question, wantCode: http.StatusForbidden, wantData: ultraRequired},
		{
			name: "no messages", method: http.MethodPost, path: "/v1/chat", token: ultraToken,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"messages":"this field is required"}`),
		},
		{
			name: "chat", method: http.MethodPost, path: "/v1/chat", token: ultraToken, body: question,
			wantCode: http.StatusOK, wantData: []byte(`{"role":"assistant","content":"Goroutines are cheap threads.","sources":[]}`),
		},
		{
			name: "search (no query)", method: http.MethodPost, path: "/v1/chat/search", token: ultraToken,
			body: []byte(`{"query":"  "}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"query":"this field is required"}`),
		},
		{
			name: "search", method: http.MethodPost, path: "/v1/chat/search", token: ultraToken,
			body:     []byte(`{"query":"goroutines"}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"role":"assistant","content":"See the basics.","sources":[{"course":"Go in production","lesson":"Hello","url":"/lessons/hello"}]}`),
		},
	}
	runHTTPTests(t, app, tests)

	req, ok := app.baas.find(http.MethodPost, "/ai/chat")
	require.True(t, ok)
	assert.Equal(t, "Bearer "+baasToken, req.auth)
	assert.Len(t, req.body["messages"], 1)
}
