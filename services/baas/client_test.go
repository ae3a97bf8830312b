package baas_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/tutor"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/baas"
)

type request struct {
	method string
	uri    string
	auth   string
	body   map[string]interface{}
}

type fakeBaaS struct {
	mu       sync.Mutex
	requests []request
	status   int
	reply    string
}

func (f *fakeBaaS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req := request{method: r.Method, uri: r.URL.RequestURI(), auth: r.Header.Get("Authorization")}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &req.body)
	}
	f.requests = append(f.requests, req)

	w.Header().Set("Content-Type", "application/json")
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, f.reply)
}

func (f *fakeBaaS) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, reply string) (*baas.Client, *fakeBaaS) {
	t.Helper()
	fake := &fakeBaaS{reply: reply}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return baas.NewClient(core.BaaSConfig{BaseURL: srv.URL + "/"}, nil), fake
}

func TestClient_Login(t *testing.T) {
	c, fake := newTestClient(t, `{"authToken":"tok-1","user":{"id":5,"email":"jane@example.com","tier":"pro","first_name":null}}`)

	sess, err := c.Login(context.Background(), user.Credentials{Email: "jane@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, int64(5), sess.User.ID)
	assert.Equal(t, tier.Pro, sess.User.Tier)
	assert.Empty(t, sess.User.FirstName)

	req := fake.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/auth/login", req.uri)
	assert.Empty(t, req.auth)
	assert.Equal(t, "jane@example.com", req.body["email"])
}

func TestClient_Signup_DefaultRole(t *testing.T) {
	c, fake := newTestClient(t, `{"authToken":"tok","user":{"id":1}}`)

	_, err := c.Signup(context.Background(), user.NewUser{Email: "a@b.co", Password: "pwd"})
	require.NoError(t, err)
	assert.Equal(t, "student", fake.last().body["role"])
}

func TestClient_BearerToken(t *testing.T) {
	c, fake := newTestClient(t, `{"id":9,"email":"x@y.z"}`)

	_, err := c.Me(context.Background(), "secret-token")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", fake.last().auth)

	_, err = c.UpdateProfile(context.Background(), "secret-token", user.UpdateProfile{})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, fake.last().method)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantMsg string
	}{
		{name: "message", status: http.StatusBadRequest, reply: `{"message":"Email already in use"}`, wantMsg: "Email already in use"},
		{name: "no message", status: http.StatusInternalServerError, reply: `oops`, wantMsg: "Request failed with status 500"},
		{name: "blank message", status: http.StatusNotFound, reply: `{"message":"  "}`, wantMsg: "Request failed with status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestClient(t, tt.reply)
			fake.status = tt.status

			_, err := c.Courses(context.Background())
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantMsg)

			status, ok := core.HTTPStatus(errors.Wrap(err, "wrapped"))
			assert.True(t, ok)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status == http.StatusNotFound, baas.IsNotFound(err))
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	c, fake := newTestClient(t, `{}`)
	fake.status = http.StatusUnauthorized

	_, err := c.MyCourses(context.Background(), "expired")
	assert.True(t, baas.IsUnauthorized(err))
}

func TestClient_Courses(t *testing.T) {
	c, fake := newTestClient(t, `{"id":1,"slug":"intro to go","modules":[]}`)

	_, err := c.Course(context.Background(), "intro to go")
	require.NoError(t, err)
	assert.Equal(t, "/courses/intro%20to%20go", fake.last().uri)

	_, err = c.CourseWithProgress(context.Background(), "tok", "go")
	require.NoError(t, err)
	assert.Equal(t, "/courses/go/with-progress", fake.last().uri)
}

func TestClient_Completion(t *testing.T) {
	c, fake := newTestClient(t, ``)

	require.NoError(t, c.SetLessonCompletion(context.Background(), "tok", 12, true))
	assert.Equal(t, "/progress/complete-lesson", fake.last().uri)
	assert.Equal(t, float64(12), fake.last().body["lesson_id"])

	require.NoError(t, c.SetLessonCompletion(context.Background(), "tok", 12, false))
	assert.Equal(t, "/progress/uncomplete-lesson", fake.last().uri)

	require.NoError(t, c.SetCourseCompletion(context.Background(), "tok", 3, false))
	assert.Equal(t, "/progress/uncomplete-course", fake.last().uri)
	assert.Equal(t, float64(3), fake.last().body["course_id"])
}

func TestClient_Search(t *testing.T) {
	c, fake := newTestClient(t, `{"courses":[{"id":1,"title":"Go","modules":[]}]}`)

	res, err := c.Search(context.Background(), course.SearchQuery{Query: "go & rust", Page: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, res.Courses, 1)
	assert.Equal(t, "/search?page=2&per_page=10&query=go+%26+rust", fake.last().uri)
}

func TestClient_TeacherCreate(t *testing.T) {
	c, fake := newTestClient(t, `{"id":40}`)

	_, err := c.CreateModule(context.Background(), "tok", course.NewModule{Course: 7, Title: "Basics", OrderIndex: 2})
	require.NoError(t, err)
	req := fake.last()
	assert.Equal(t, "/teacher/modules", req.uri)
	assert.Equal(t, float64(7), req.body["course_id"])
	assert.Equal(t, float64(2), req.body["order_index"])

	_, err = c.CreateLesson(context.Background(), "tok", course.NewLesson{Module: 40, Title: "Hello", Slug: "hello"})
	require.NoError(t, err)
	req = fake.last()
	assert.Equal(t, "/teacher/lessons", req.uri)
	assert.Equal(t, float64(40), req.body["module_id"])
	assert.NotContains(t, req.body, "mux_playback_id")
}

func TestClient_Video(t *testing.T) {
	c, fake := newTestClient(t, `{"status":"asset_created","asset_id":"a-1"}`)

	st, err := c.UploadStatus(context.Background(), "tok", "up/1")
	require.NoError(t, err)
	assert.Equal(t, "asset_created", st.Status)
	assert.Equal(t, "/mux/upload-status/up%2F1", fake.last().uri)

	_, err = c.Asset(context.Background(), "tok", "a 1")
	require.NoError(t, err)
	assert.Equal(t, "/mux/get_asset?asset_id=a+1", fake.last().uri)

	_, err = c.CreateUpload(context.Background(), "tok", "https://app.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", fake.last().body["cors_origin"])
}

func TestClient_PutUpload(t *testing.T) {
	var (
		gotType string
		gotLen  int64
		gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotType, gotLen, gotBody = r.Header.Get("Content-Type"), r.ContentLength, string(data)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()
	c := baas.NewClient(core.BaaSConfig{BaseURL: "http://unused"}, nil)

	err := c.PutUpload(context.Background(), srv.URL+"/ok", "video/mp4", 5, strings.NewReader("video"))
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, int64(5), gotLen)
	assert.Equal(t, "video", gotBody)

	err = c.PutUpload(context.Background(), srv.URL+"/fail", "video/mp4", -1, strings.NewReader("video"))
	status, _ := core.HTTPStatus(err)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestClient_AI(t *testing.T) {
	c, fake := newTestClient(t, `{"message":"Hi!","sources":[{"course":"Go","lesson":"Intro","url":"/lessons/intro"}]}`)

	ans, err := c.Chat(context.Background(), "tok", []tutor.Message{{Role: tutor.RoleUser, Content: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, core.Text("Hi!"), ans.Message)
	assert.Len(t, ans.Sources, 1)
	assert.Equal(t, "/ai/chat", fake.last().uri)

	_, err = c.SearchAndAnswer(context.Background(), "tok", "channels")
	require.NoError(t, err)
	assert.Equal(t, "channels", fake.last().body["query"])
}
