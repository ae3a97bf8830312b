package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
	"github.com/trezcool/darasa/services/baas"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// fakeBackend answers the few hosted backend routes the CLI needs.
func fakeBackend(t *testing.T, uploadStatus string) *httptest.Server {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds user.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "s3cret" {
			reply(w, http.StatusForbidden, `{"message":"Invalid Credentials."}`)
			return
		}
		reply(w, http.StatusOK, `{"authToken":"tok","user":{"id":1,"email":"`+creds.Email+`","tier":"free"}}`)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"id":1,"email":"awe@test.cd","tier":"free"}`)
	})
	mux.HandleFunc("/auth/upgrade", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"id":1,"email":"awe@test.cd","tier":"ultra"}`)
	})
	mux.HandleFunc("/mux/upload-status/up1", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"status":"`+uploadStatus+`","asset_id":"as1"}`)
	})
	mux.HandleFunc("/mux/get_asset", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{"id":"as1","status":"ready","playback_id":"pb1","duration":12}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T, uploadStatus string) (*commandLine, *bytes.Buffer) {
	srv := fakeBackend(t, uploadStatus)
	logger := nopLogger{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	client := baas.NewClient(core.BaaSConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, logger)
	out := new(bytes.Buffer)
	return &commandLine{
		jobRepo: inmemdb.NewJobRepository(inmemdb.Open()),
		usrSvc:  user.NewService(client, validate, nil, logger),
		poller: video.NewPoller(client, core.VideoConfig{
			UploadPollInterval:    time.Millisecond,
			UploadPollMaxAttempts: 3,
			AssetPollInterval:     time.Millisecond,
			AssetPollMaxAttempts:  3,
		}, logger),
		out: out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

type extra struct {
	pwd string
}

func mockPassword(tt cliTest) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if extra, ok := tt.extra.(extra); ok {
			return []byte(extra.pwd), nil
		}
		return nil, nil
	}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	cli, _ := setup(t, video.UploadAssetCreated)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no args", args: []string{"migrate"}, wantErr: errHelp},
		{name: "upgrade: no args", args: []string{"upgrade"}, wantErr: errHelp},
		{name: "upgrade: no tier", args: []string{"upgrade", "-email", "awe@test.cd"}, wantErr: errHelp},
		{name: "upgrade: no password", args: []string{"upgrade", "-email", "awe@test.cd", "-tier", "pro"}, wantErr: errHelp},
		{name: "watch: no upload", args: []string{"watch", "-email", "awe@test.cd"}, extra: extra{pwd: "s3cret"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"jobs", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	}
	runCLITests(t, cli, tests)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t, video.UploadAssetCreated)

	t.Run("database disabled", func(t *testing.T) {
		assert.Equal(t, errNoDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})

	cli.db = new(sql.DB)
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "lesson_notes", "sql"}},
	}
	runCLITests(t, cli, tests)
}

func Test_commandLine_upgrade(t *testing.T) {
	cli, out := setup(t, video.UploadAssetCreated)

	tests := []cliTest{
		{
			name: "wrong password", args: []string{"upgrade", "-email", "awe@test.cd", "-tier", "ultra"},
			extra: extra{pwd: "nope"}, wantErr: user.ErrInvalidCredentials,
		},
		{name: "upgraded", args: []string{"upgrade", "-email", "awe@test.cd", "-tier", "ultra"}, extra: extra{pwd: "s3cret"}},
	}
	runCLITests(t, cli, tests)
	assert.Contains(t, out.String(), "awe@test.cd is now on the Ultra plan")

	t.Run("unknown tier", func(t *testing.T) {
		mockPassword(cliTest{extra: extra{pwd: "s3cret"}})
		err := cli.run([]string{"admin", "upgrade", "-email", "awe@test.cd", "-tier", "gold"})
		var vErrs validator.ValidationErrors
		assert.ErrorAs(t, err, &vErrs)
	})
}

func Test_commandLine_watch(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		cli, out := setup(t, video.UploadAssetCreated)
		runCLITests(t, cli, []cliTest{
			{name: "watch", args: []string{"watch", "-email", "awe@test.cd", "-upload", "up1"}, extra: extra{pwd: "s3cret"}},
		})
		assert.Contains(t, out.String(), "upload: check 1")
		assert.Contains(t, out.String(), "ready: asset=as1 playback=pb1 duration=12.0s")
	})

	t.Run("never processed", func(t *testing.T) {
		cli, out := setup(t, video.UploadWaiting)
		runCLITests(t, cli, []cliTest{
			{name: "watch", args: []string{"watch", "-email", "awe@test.cd", "-upload", "up1"}, extra: extra{pwd: "s3cret"}, wantErr: video.ErrUploadTimeout},
		})
		assert.Contains(t, out.String(), "upload: check 3")
		assert.NotContains(t, out.String(), "upload: check 4")
	})

	t.Run("errored", func(t *testing.T) {
		cli, _ := setup(t, video.UploadErrored)
		runCLITests(t, cli, []cliTest{
			{name: "watch", args: []string{"watch", "-email", "awe@test.cd", "-upload", "up1"}, extra: extra{pwd: "s3cret"}, wantErr: video.ErrUploadFailed},
		})
	})
}

func Test_commandLine_jobs(t *testing.T) {
	cli, out := setup(t, video.UploadAssetCreated)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, state := range []video.State{video.StateComplete, video.StateProcessing, video.StateError} {
		_, err := cli.jobRepo.CreateJob(ctx, video.Job{
			ID:        fmt.Sprintf("job-%d", i),
			State:     state,
			CreatedBy: 4,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
			UpdatedAt: now,
		})
		require.NoError(t, err)
	}

	tests := []cliTest{
		{name: "unknown state", args: []string{"jobs", "-state", "lol"}, wantErr: errUnknownState},
		{name: "complete", args: []string{"jobs", "-state", "complete"}},
	}
	runCLITests(t, cli, tests)
	assert.Contains(t, out.String(), "job-0")
	assert.NotContains(t, out.String(), "job-1")

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "jobs"}))
	assert.Contains(t, out.String(), "job-1")
	assert.Contains(t, out.String(), "job-2")
}
