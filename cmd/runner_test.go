package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/repositories"
	"github.com/desertthunder/tvx/internal/shared"
	tu "github.com/desertthunder/tvx/internal/testing"
	"github.com/urfave/cli/v3"
)

const (
	testCredential = "google-id-token"
	testToken      = "session-token"
)

// fakeBackend serves the subset of the series API the commands use.
func fakeBackend(t *testing.T, log *tu.RequestLog) *httptest.Server {
	t.Helper()

	authed := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+testToken
	}

	user := `{"id":1,"email":"viewer@example.com","name":"Viewer","notifications":[` +
		`{"user_notification_id":7,"notification_id":70,"serie_id":42,"serie_name":"Dark","type":"new_episodes",` +
		`"status":"unread","notified_at":"2025-03-01T12:00:00Z","read_at":null,"variables":{"season_number":2,"episode_count":3}}` +
		`],"unread_notifications_count":1}`

	detail := `{"id":42,"name":"Dark","first_air_date":"2017-12-01","poster_path":"/dark.jpg",` +
		`"seasons":[{"id":420,"season_number":1,"episodes":[` +
		`{"id":4201,"season_id":420,"episode_number":1,"name":"Secrets"},` +
		`{"id":4202,"season_id":420,"episode_number":2,"name":"Lies"}]}],` +
		`"stats":{"total_followers":10,"followed_by_current_user":false},` +
		`"user_data":{"is_following":false,"is_watched":false,"watched_seasons":[],"watched_episodes":[]}}`

	mux := http.NewServeMux()
	mux.HandleFunc("GET /init", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			tu.WriteJSON(w, http.StatusOK, `{"authenticated":false,"user":null}`)
			return
		}
		tu.WriteJSON(w, http.StatusOK, `{"authenticated":true,"user":`+user+`}`)
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Credential string `json:"credential"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Credential != testCredential {
			tu.WriteJSON(w, http.StatusUnauthorized, `{"error":"invalid credential"}`)
			return
		}
		tu.WriteJSON(w, http.StatusOK, `{"token":"`+testToken+`","user":`+user+`}`)
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /series/popular", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, `{"results":[{"id":42,"name":"Dark","first_air_date":"2017-12-01","vote_average":8.4}],"page":1,"total_pages":1,"total_results":1}`)
	})
	mux.HandleFunc("GET /series/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "dark" {
			tu.WriteJSON(w, http.StatusOK, `{"results":[],"page":1,"total_pages":0,"total_results":0}`)
			return
		}
		tu.WriteJSON(w, http.StatusOK, `{"results":[{"id":42,"name":"Dark"}],"page":1,"total_pages":1,"total_results":1}`)
	})
	mux.HandleFunc("GET /series/42", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, detail)
	})
	mux.HandleFunc("GET /users/me/series", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			tu.WriteJSON(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
			return
		}
		tu.WriteJSON(w, http.StatusOK, `{"series":[]}`)
	})
	mux.HandleFunc("POST /users/me/series/42/follow", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, `{"success":true}`)
	})
	mux.HandleFunc("POST /users/me/series/42/episodes/4201/watched", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, `{"success":true}`)
	})
	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, `{"notifications":[`+
			`{"user_notification_id":7,"notification_id":70,"serie_id":42,"serie_name":"Dark","type":"new_episodes",`+
			`"status":"unread","notified_at":"2025-03-01T12:00:00Z","read_at":null,"variables":{"season_number":2,"episode_count":3}},`+
			`{"user_notification_id":8,"notification_id":80,"serie_id":43,"serie_name":"Andor","type":"status_ended",`+
			`"status":"read","notified_at":"2025-02-01T12:00:00Z","read_at":"2025-02-02T12:00:00Z","variables":{}}`+
			`],"unread_count":1}`)
	})
	mux.HandleFunc("PUT /notifications/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /notifications/8", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if log != nil {
			log.Record(r)
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestRunner wires a runner against baseURL with an in-memory store.
func newTestRunner(t *testing.T, baseURL string) (*Runner, *bytes.Buffer) {
	t.Helper()

	db, err := shared.OpenStore(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.API.BaseURL = baseURL
	config.Push.Enabled = false

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
		Input:  strings.NewReader(""),
		DB:     db,
	})
	return runner, output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:      "tvx",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Commands:  r.register(),
	}
	return app.Run(context.Background(), append([]string{"tvx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Input:      input,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.session != nil {
				t.Error("expected backend stack to be built lazily")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses configured timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.API.TimeoutSeconds = 3
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.httpClient == nil {
				t.Fatal("expected httpClient to be set")
			}
			if runner.httpClient.Timeout != config.API.Timeout() {
				t.Errorf("expected timeout %v, got %v", config.API.Timeout(), runner.httpClient.Timeout)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "auth", "series", "watch", "notifications", "push", "export", "api", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes template once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, output := newTestRunner(t, "http://unused")

		if err := run(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Config written") {
			t.Errorf("unexpected output %q", output.String())
		}

		err := run(t, runner, "setup", "config", "--config", path)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}
	})

	t.Run("database creates store from template config", func(t *testing.T) {
		dir := t.TempDir()
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, dir)
		t.Cleanup(func() { tu.MustChdir(t, wd) })

		runner, output := newTestRunner(t, "http://unused")
		if err := run(t, runner, "setup", "database", "--config", "config.toml"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "tvx.db"))
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("login with credential persists the session", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Signed in as Viewer <viewer@example.com>") {
			t.Errorf("unexpected output %q", output.String())
		}
		if runner.inbox.UnreadCount() != 1 {
			t.Errorf("expected inbox fed from login payload, got %d unread", runner.inbox.UnreadCount())
		}

		restarted := NewRunner(RunnerOpts{
			Config: runner.config,
			Logger: shared.NewLogger(io.Discard),
			Output: &bytes.Buffer{},
			DB:     runner.db,
		})
		if err := restarted.connect(context.Background()); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		if !restarted.session.IsAuthenticated() {
			t.Error("expected stored session to be restored")
		}
	})

	t.Run("expired stored session is cleared", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		sessions := repositories.NewSessionRepository(runner.db)
		stale := &models.Session{Token: "stale-token", User: models.User{ID: 1, Email: "viewer@example.com"}}
		if err := sessions.Save(context.Background(), stale); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}

		if err := run(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Not signed in") {
			t.Errorf("expected signed out status, got %q", output.String())
		}

		stored, err := sessions.Load(context.Background())
		if err != nil || stored != nil {
			t.Errorf("expected stored session removed, got %+v (%v)", stored, err)
		}
	})

	t.Run("login with bad credential fails", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, _ := newTestRunner(t, srv.URL)

		err := run(t, runner, "auth", "login", "--credential", "wrong")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("login without client id reports missing credentials", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, _ := newTestRunner(t, srv.URL)
		runner.config.Auth.Google.ClientID = ""

		err := run(t, runner, "auth", "login")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("status and logout", func(t *testing.T) {
		log := &tu.RequestLog{}
		srv := fakeBackend(t, log)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Not signed in") {
			t.Errorf("expected signed out status, got %q", output.String())
		}

		if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		output.Reset()
		if err := run(t, runner, "auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Unread notifications: 1") {
			t.Errorf("unexpected status %q", output.String())
		}

		if err := run(t, runner, "auth", "logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.session.IsAuthenticated() {
			t.Error("expected session cleared")
		}
		if runner.inbox.Len() != 0 {
			t.Error("expected inbox cleared")
		}
		if log.Count("POST /logout") != 1 {
			t.Errorf("expected one logout request, got %d", log.Count("POST /logout"))
		}
	})
}

func TestSeriesCommands(t *testing.T) {
	t.Run("popular lists catalog", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "series", "popular"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "1. Dark (2017)") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("search requires a query", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://unused")
		err := run(t, runner, "series", "search")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("search as json", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "series", "search", "--json", "dark"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var page models.SeriesPage
		if err := json.Unmarshal(output.Bytes(), &page); err != nil {
			t.Fatalf("expected JSON output, got %q", output.String())
		}
		if len(page.Results) != 1 || page.Results[0].ID != 42 {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("show prints seasons", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "series", "show", "42"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "S01E01 Secrets") || !strings.Contains(out, "0/2 watched") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("follow requires sign in", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, _ := newTestRunner(t, srv.URL)

		err := run(t, runner, "series", "follow", "42")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("follow", func(t *testing.T) {
		log := &tu.RequestLog{}
		srv := fakeBackend(t, log)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := run(t, runner, "series", "follow", "42"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if log.Count("POST /users/me/series/42/follow") != 1 {
			t.Error("expected follow request")
		}
		if !strings.Contains(output.String(), "Following Dark (11 followers)") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestWatchCommands(t *testing.T) {
	log := &tu.RequestLog{}
	srv := fakeBackend(t, log)
	runner, output := newTestRunner(t, srv.URL)

	if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := run(t, runner, "watch", "episode", "42", "4201"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if log.Count("POST /users/me/series/42/episodes/4201/watched") != 1 {
		t.Error("expected episode watched request")
	}
	if !strings.Contains(output.String(), "S01E01 Secrets as watched") {
		t.Errorf("unexpected output %q", output.String())
	}

	err := run(t, runner, "watch", "season", "42")
	if !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}

func TestNotificationCommands(t *testing.T) {
	t.Run("list requires sign in", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, _ := newTestRunner(t, srv.URL)

		err := run(t, runner, "notifications", "list")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("list, read and delete", func(t *testing.T) {
		log := &tu.RequestLog{}
		srv := fakeBackend(t, log)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		output.Reset()
		if err := run(t, runner, "notifications", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Notifications (1 unread)") || !strings.Contains(out, "● [7] Dark") {
			t.Errorf("unexpected list %q", out)
		}

		output.Reset()
		if err := run(t, runner, "notifications", "read", "7"); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if !strings.Contains(output.String(), "0 unread") {
			t.Errorf("unexpected output %q", output.String())
		}
		if log.Count("PUT /notifications/7") != 1 {
			t.Error("expected mark read request")
		}

		if err := run(t, runner, "notifications", "delete", "8"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, ok := runner.inbox.Get(8); ok {
			t.Error("expected notification 8 removed")
		}

		err := run(t, runner, "notifications", "read", "99")
		if !errors.Is(err, shared.ErrNotificationNotFound) {
			t.Errorf("expected ErrNotificationNotFound, got %v", err)
		}
	})
}

func TestPushCommands(t *testing.T) {
	t.Run("status when disabled", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "push", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "not supported") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("listen requires a listen url", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, _ := newTestRunner(t, srv.URL)
		runner.config.Push.ListenURL = ""

		if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		err := run(t, runner, "push", "listen")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestExportCommands(t *testing.T) {
	t.Run("export records history", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)
		dir := filepath.Join(t.TempDir(), "out")

		if err := run(t, runner, "auth", "login", "--credential", testCredential); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := run(t, runner, "export", "--output", dir, "--rate", "100"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(output.String(), "Export Complete!") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "export", "history", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var jobs []models.ExportJob
		if err := json.Unmarshal(output.Bytes(), &jobs); err != nil {
			t.Fatalf("expected JSON output, got %q", output.String())
		}
		if len(jobs) != 1 || jobs[0].OutputDir != dir {
			t.Errorf("unexpected jobs %+v", jobs)
		}
	})

	t.Run("history rejects unknown status", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://unused")
		err := run(t, runner, "export", "history", "--status", "bogus")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("get prints JSON", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "api", "get", "series/popular"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), `"name": "Dark"`) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("get surfaces non-2xx", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, _ := newTestRunner(t, srv.URL)

		err := run(t, runner, "api", "get", "/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("post rejects invalid JSON", func(t *testing.T) {
		runner, _ := newTestRunner(t, "http://unused")
		err := run(t, runner, "api", "post", "--data", "{nope", "/x")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("dump collects failures", func(t *testing.T) {
		srv := fakeBackend(t, nil)
		runner, output := newTestRunner(t, srv.URL)

		if err := run(t, runner, "api", "dump"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Dump complete") || !strings.Contains(out, "/users/me/series") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("apiPath", func(t *testing.T) {
		tests := []struct{ in, want string }{
			{"", ""},
			{"/init", "/init"},
			{"init", "/init"},
			{"  series ", "/series"},
		}
		for _, tt := range tests {
			if got := apiPath(tt.in); got != tt.want {
				t.Errorf("apiPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		}
	})
}
