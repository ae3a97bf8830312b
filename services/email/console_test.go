package emailsvc_test

import (
	"bytes"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
	appfs "github.com/trezcool/darasa/fs"
	emailsvc "github.com/trezcool/darasa/services/email"
)

type failLogger struct{ t *testing.T }

func (l failLogger) Debug(string, ...interface{}) {}
func (l failLogger) Info(string, ...interface{})  {}
func (l failLogger) Warn(string, ...interface{})  {}
func (l failLogger) Error(msg string, args ...interface{}) {
	l.t.Errorf("%s: %v", msg, args)
}
func (l failLogger) Fatal(msg string, args ...interface{}) {
	l.t.Fatalf("%s: %v", msg, args)
}

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Darasa",
		TestMode:         true,
		FrontendBaseURL:  "https://darasa.test",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@darasa.test"},
	}
}

func TestConsoleService_Templates(t *testing.T) {
	conf := testConfig()
	core.ParseEmailTemplates(appfs.FS, conf, failLogger{t})
	jane := user.User{Email: "jane@example.com", FirstName: "Jane", Tier: tier.Ultra}

	var ultra tier.Plan
	for _, p := range tier.Plans() {
		if p.Tier == tier.Ultra {
			ultra = p
		}
	}

	tests := []struct {
		name     string
		tmpl     string
		data     interface{}
		wantText []string
	}{
		{
			name:     "welcome",
			tmpl:     "welcome",
			data:     jane,
			wantText: []string{"Hi Jane,", "https://darasa.test/courses", "The Darasa team"},
		},
		{
			name: "upgrade",
			tmpl: "upgrade",
			data: struct {
				User user.User
				Plan tier.Plan
			}{jane, ultra},
			wantText: []string{"Hi Jane,", "Ultra plan ($49/month)", "- AI Tutor access", "https://darasa.test/dashboard"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := emailsvc.NewConsoleServiceMock(conf)
			svc.SendMessages(&core.EmailMessage{
				To:           []mail.Address{{Name: "Jane", Address: jane.Email}},
				Subject:      "Hello",
				TemplateName: tt.tmpl,
				TemplateData: tt.data,
			})

			sent := svc.Sent()
			require.Len(t, sent, 1)
			for _, want := range tt.wantText {
				assert.Contains(t, sent[0].TextContent, want)
			}
			assert.Contains(t, sent[0].HTMLContent, "<p>Hi Jane,</p>")
		})
	}
}

func TestConsoleService_Skips(t *testing.T) {
	svc := emailsvc.NewConsoleServiceMock(testConfig())
	svc.SendMessages(
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hi"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@b.co"}}, Subject: "no content"},
	)
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_PlainBody(t *testing.T) {
	var out bytes.Buffer
	svc := emailsvc.NewConsoleServiceMock(testConfig())
	svc.SetOutput(&out)

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "a@b.co"}}, Subject: "Ping", BodyStr: "pong"})
	require.Len(t, svc.Sent(), 1)
	assert.Contains(t, out.String(), "Subject: [Darasa] Ping")
	assert.Contains(t, out.String(), "To: <a@b.co>")
	assert.Contains(t, out.String(), "pong")
}
