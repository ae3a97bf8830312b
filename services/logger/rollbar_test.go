package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

func newTestLogger(debug bool) (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := NewRollbarLogger(log.New(buf, "", 0), &core.Config{Debug: debug, Env: "TEST"})
	l.Enable(false)
	return l, buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newTestLogger(false)
	err := errors.New("boom")
	usr := user.User{ID: 7, Email: "jane@example.com"}
	extra := map[string]interface{}{"k": "v"}

	args := l.prepare("msg", []interface{}{err, usr, extra, user.User{ID: 8}})
	assert.Equal(t, []interface{}{"msg", err, extra}, args)
}

func TestRollbarLogger_Debug(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l, buf = newTestLogger(true)
	l.Debug("shown", map[string]interface{}{"n": 1})
	assert.Contains(t, buf.String(), "DEBUG shown")
	assert.Contains(t, buf.String(), "map[n:1]")
}

func TestRollbarLogger_Warn(t *testing.T) {
	l, buf := newTestLogger(false)
	l.Warn("careful", user.User{ID: 3, Email: "a@b.co"})
	assert.Contains(t, buf.String(), "WARN careful")
	assert.Contains(t, buf.String(), "user: 3 <a@b.co>")
}
