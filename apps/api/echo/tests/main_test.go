package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/tutor"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
	appfs "github.com/trezcool/darasa/fs"
	"github.com/trezcool/darasa/services/baas"
	emailsvc "github.com/trezcool/darasa/services/email"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

const baasToken = "baas-token"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}

	student = user.User{ID: 1, Email: "student@test.cd", FirstName: "Stu", Role: user.RoleStudent, Tier: tier.Free}
	pro     = user.User{ID: 2, Email: "pro@test.cd", FirstName: "Pam", Role: user.RoleStudent, Tier: tier.Pro}
	ultra   = user.User{ID: 3, Email: "ultra@test.cd", FirstName: "Uma", Role: user.RoleStudent, Tier: tier.Ultra}
	teacher = user.User{ID: 4, Email: "teacher@test.cd", FirstName: "Tom", Role: user.RoleTeacher, Tier: tier.Free}
	other   = user.User{ID: 5, Email: "other@test.cd", FirstName: "Oli", Role: user.RoleTeacher, Tier: tier.Free}
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type (
	baasReply struct {
		status int
		body   string
	}

	baasRequest struct {
		method string
		uri    string
		auth   string
		body   map[string]interface{}
	}

	// fakeBaaS answers "METHOD /path" routes with canned JSON. Unknown routes are 404s.
	fakeBaaS struct {
		mu       sync.Mutex
		routes   map[string]baasReply
		requests []baasRequest
	}
)

func (f *fakeBaaS) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = baasReply{status: status, body: body}
}

func (f *fakeBaaS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := baasRequest{method: r.Method, uri: r.URL.RequestURI(), auth: r.Header.Get("Authorization")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 && strings.Contains(r.Header.Get("Content-Type"), "json") {
		_ = json.Unmarshal(data, &req.body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		reply = baasReply{status: http.StatusNotFound, body: `{"message":"Not Found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

// find returns the last request made to path.
func (f *fakeBaaS) find(method, path string) (baasRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		req := f.requests[i]
		if req.method == method && strings.SplitN(req.uri, "?", 2)[0] == path {
			return req, true
		}
	}
	return baasRequest{}, false
}

type testApp struct {
	Server
	conf  *core.Config
	baas  *fakeBaaS
	url   string
	mails *emailsvc.ConsoleService
}

func newTestConfig(baseURL string) *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "Darasa",
		SecretKey:        "test-secret",
		Env:              "TEST",
		FrontendBaseURL:  "http://localhost:8000",
		DefaultFromEmail: mail.Address{Name: "Darasa", Address: "noreply@test.cd"},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		BaaS: core.BaaSConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Video: core.VideoConfig{
			MaxUploadSize:         1 << 20,
			CORSOrigin:            "*",
			UploadPollInterval:    time.Millisecond,
			UploadPollMaxAttempts: 5,
			AssetPollInterval:     time.Millisecond,
			AssetPollMaxAttempts:  5,
		},
	}
}

func setup(t *testing.T) *testApp {
	fake := &fakeBaaS{routes: make(map[string]baasReply)}
	upstream := httptest.NewServer(fake)
	conf := newTestConfig(upstream.URL)
	logger := nopLogger{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	client := baas.NewClient(conf.BaaS, logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	courseSvc := course.NewService(client, validate, logger)
	videoSvc := video.NewService(client, inmemdb.NewJobRepository(inmemdb.Open()), conf.Video, logger)

	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        user.NewService(client, validate, mailSvc, logger),
		CourseSvc:      courseSvc,
		VideoSvc:       videoSvc,
		TutorSvc:       tutor.NewService(client, nil, courseSvc, validate, logger),
		DisableReqLogs: true,
	})

	t.Cleanup(func() {
		videoSvc.Close()
		_ = app.Close()
		upstream.Close()
	})
	return &testApp{Server: app, conf: conf, baas: fake, url: upstream.URL, mails: mailSvc}
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	token, err := NewToken(app.conf, usr, baasToken)
	require.NoError(t, err, "NewToken()")
	return token
}

func (app *testApp) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func newFormRequest(path, token string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	}
	return req
}

func newPageRequest(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	}
	return req
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	return nil
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}
