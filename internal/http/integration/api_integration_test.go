package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/geocoder89/postboard/internal/app"
	"github.com/geocoder89/postboard/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		Port:           0,
		Store:          "memory",
		JWTSecret:      "test-secret-key",
		JWTIssuer:      "postboard-test",
		JWTAccessTTL:   30 * time.Minute,
		BcryptCost:     4,
		PostsCacheTTL:  time.Minute,
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:   1 << 20,
	}
}

func setupRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(a.Close)

	return a.Router
}

// backends returns the memory backend always and postgres when TEST_DB_DSN is set.
func backends(t *testing.T) map[string]config.Config {
	t.Helper()

	out := map[string]config.Config{"memory": testConfig()}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		return out
	}

	cfg := testConfig()
	cfg.Store = "postgres"
	cfg.DBURL = dsn
	cfg.DBMaxConns = 4
	out["postgres"] = cfg

	return out
}

func resetDB(t *testing.T, cfg config.Config) {
	t.Helper()
	if cfg.Store != "postgres" {
		return
	}

	pool, err := pgxpool.New(context.Background(), cfg.DBURL)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(context.Background(), `TRUNCATE posts, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// helpers

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c client) expect(w *httptest.ResponseRecorder, status int, what string) {
	c.t.Helper()
	if w.Code != status {
		c.t.Fatalf("%s got status %d, want %d, body=%s", what, w.Code, status, w.Body.String())
	}
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type userResponse struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	FullName   *string    `json:"full_name"`
	LastLogin  *time.Time `json:"last_login"`
	LastLogout *time.Time `json:"last_logout"`
}

type postResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c client) register(email, password string) userResponse {
	c.t.Helper()
	w := c.do(http.MethodPost, "/register", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	c.expect(w, http.StatusCreated, "register "+email)

	var u userResponse
	mustReadJSON(c.t, w, &u)
	return u
}

func (c client) login(email, password string) string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	c.expect(w, http.StatusOK, "login "+email)

	var tok tokenResponse
	mustReadJSON(c.t, w, &tok)
	if strings.TrimSpace(tok.AccessToken) == "" || tok.TokenType != "bearer" {
		c.t.Fatalf("unexpected token response: %+v", tok)
	}
	return tok.AccessToken
}

func TestAPI_RegisterLoginProfile(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			resetDB(t, cfg)
			c := client{t: t, router: setupRouter(t, cfg)}

			u := c.register("Sam@Example.com", "password123")
			if u.Email != "sam@example.com" || u.ID <= 0 {
				t.Fatalf("unexpected user: %+v", u)
			}

			// email uniqueness ignores case
			w := c.do(http.MethodPost, "/register", `{"email":"SAM@example.com","password":"x"}`, "")
			c.expect(w, http.StatusConflict, "duplicate register")

			w = c.do(http.MethodPost, "/login", `{"email":"sam@example.com","password":"wrong"}`, "")
			c.expect(w, http.StatusUnauthorized, "wrong password")
			wrongPassword := w.Body.String()

			w = c.do(http.MethodPost, "/login", `{"email":"nobody@example.com","password":"wrong"}`, "")
			c.expect(w, http.StatusUnauthorized, "unknown email")
			if !strings.Contains(wrongPassword, "Incorrect email or password") || !strings.Contains(w.Body.String(), "Incorrect email or password") {
				t.Fatalf("login failures should be indistinguishable: %s vs %s", wrongPassword, w.Body.String())
			}

			token := c.login("sam@example.com", "password123")

			w = c.do(http.MethodGet, "/users/me", "", token)
			c.expect(w, http.StatusOK, "me")
			var me userResponse
			mustReadJSON(t, w, &me)
			if me.LastLogin == nil {
				t.Fatalf("expected last_login to be set after login")
			}

			w = c.do(http.MethodPut, "/users/me", `{"full_name":"Sam Doe"}`, token)
			c.expect(w, http.StatusOK, "update me")
			mustReadJSON(t, w, &me)
			if me.FullName == nil || *me.FullName != "Sam Doe" {
				t.Fatalf("full_name not updated: %+v", me)
			}

			w = c.do(http.MethodPut, "/users/me", `{"password":"new-password"}`, token)
			c.expect(w, http.StatusOK, "change password")
			c.login("sam@example.com", "new-password")

			w = c.do(http.MethodPost, "/logout", "", token)
			c.expect(w, http.StatusOK, "logout")

			w = c.do(http.MethodGet, "/users/me", "", token)
			c.expect(w, http.StatusOK, "me after logout")
			mustReadJSON(t, w, &me)
			if me.LastLogout == nil {
				t.Fatalf("expected last_logout to be set")
			}

			w = c.do(http.MethodGet, "/users/me", "", "")
			c.expect(w, http.StatusUnauthorized, "me without token")

			w = c.do(http.MethodGet, "/users/me", "", token+"x")
			c.expect(w, http.StatusUnauthorized, "me with tampered token")
		})
	}
}

func TestAPI_PostsOwnership(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			resetDB(t, cfg)
			c := client{t: t, router: setupRouter(t, cfg)}

			alice := c.register("alice@example.com", "pw-alice")
			c.register("bob@example.com", "pw-bob")
			aliceToken := c.login("alice@example.com", "pw-alice")
			bobToken := c.login("bob@example.com", "pw-bob")

			w := c.do(http.MethodPost, "/posts", `{"text":"hello"}`, aliceToken)
			c.expect(w, http.StatusCreated, "create post")
			var p postResponse
			mustReadJSON(t, w, &p)
			if p.UserID != alice.ID || !p.CreatedAt.Equal(p.UpdatedAt) {
				t.Fatalf("unexpected post: %+v", p)
			}

			w = c.do(http.MethodPost, "/posts", `{"text":"hi"}`, "")
			c.expect(w, http.StatusUnauthorized, "anonymous create")

			w = c.do(http.MethodPost, "/posts", `{"text":""}`, aliceToken)
			c.expect(w, http.StatusBadRequest, "empty text")

			w = c.do(http.MethodPost, "/posts", fmt.Sprintf(`{"text":%q}`, strings.Repeat("a", 1001)), aliceToken)
			c.expect(w, http.StatusBadRequest, "oversized text")

			listPath := fmt.Sprintf("/users/%d/posts", alice.ID)
			w = c.do(http.MethodGet, listPath, "", "")
			c.expect(w, http.StatusOK, "public list")
			etag := w.Header().Get("ETag")
			if etag == "" {
				t.Fatalf("expected ETag on list response")
			}

			w = c.do(http.MethodGet, listPath, "", "", "If-None-Match", etag)
			c.expect(w, http.StatusNotModified, "conditional list")

			postPath := fmt.Sprintf("/posts/%d", p.ID)

			w = c.do(http.MethodPut, postPath, `{"text":"hijacked"}`, bobToken)
			c.expect(w, http.StatusForbidden, "foreign update")

			w = c.do(http.MethodDelete, postPath, "", bobToken)
			c.expect(w, http.StatusForbidden, "foreign delete")

			w = c.do(http.MethodPut, postPath, `{"text":"edited"}`, aliceToken)
			c.expect(w, http.StatusOK, "owner update")
			var edited postResponse
			mustReadJSON(t, w, &edited)
			if edited.Text != "edited" || !edited.UpdatedAt.After(p.UpdatedAt) || !edited.CreatedAt.Equal(p.CreatedAt) {
				t.Fatalf("unexpected updated post: %+v (was %+v)", edited, p)
			}

			// the cached listing was invalidated by the update
			w = c.do(http.MethodGet, listPath, "", "", "If-None-Match", etag)
			c.expect(w, http.StatusOK, "list after update")
			var posts []postResponse
			mustReadJSON(t, w, &posts)
			if len(posts) != 1 || posts[0].Text != "edited" {
				t.Fatalf("unexpected list after update: %+v", posts)
			}

			w = c.do(http.MethodPut, "/posts/999999", `{"text":"x"}`, aliceToken)
			c.expect(w, http.StatusNotFound, "update missing")

			w = c.do(http.MethodPut, "/posts/abc", `{"text":"x"}`, aliceToken)
			c.expect(w, http.StatusBadRequest, "update bad id")

			w = c.do(http.MethodDelete, postPath, "", aliceToken)
			c.expect(w, http.StatusNoContent, "owner delete")

			w = c.do(http.MethodDelete, postPath, "", aliceToken)
			c.expect(w, http.StatusNotFound, "delete twice")

			w = c.do(http.MethodGet, listPath, "", "")
			c.expect(w, http.StatusOK, "list after delete")
			if strings.TrimSpace(w.Body.String()) != "[]" {
				t.Fatalf("expected empty array, got %s", w.Body.String())
			}
		})
	}
}

func TestAPI_DeleteSelfCascadesAndRevokesAccess(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			resetDB(t, cfg)
			c := client{t: t, router: setupRouter(t, cfg)}

			u := c.register("gone@example.com", "pw123")
			token := c.login("gone@example.com", "pw123")

			for _, text := range []string{"one", "two"} {
				w := c.do(http.MethodPost, "/posts", fmt.Sprintf(`{"text":%q}`, text), token)
				c.expect(w, http.StatusCreated, "create "+text)
			}

			listPath := fmt.Sprintf("/users/%d/posts", u.ID)
			w := c.do(http.MethodGet, listPath, "", "")
			c.expect(w, http.StatusOK, "list before delete")

			w = c.do(http.MethodDelete, "/users/me", "", token)
			c.expect(w, http.StatusNoContent, "delete me")

			w = c.do(http.MethodGet, "/users/me", "", token)
			c.expect(w, http.StatusUnauthorized, "token of deleted user")

			w = c.do(http.MethodGet, listPath, "", "")
			c.expect(w, http.StatusOK, "list after delete")
			if strings.TrimSpace(w.Body.String()) != "[]" {
				t.Fatalf("posts should be gone with their owner, got %s", w.Body.String())
			}

			again := c.register("gone@example.com", "pw123")
			if again.ID == u.ID {
				t.Fatalf("user ids must not be reused: %d", again.ID)
			}
		})
	}
}

func TestAPI_SearchAndFilter(t *testing.T) {
	for name, cfg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			resetDB(t, cfg)
			c := client{t: t, router: setupRouter(t, cfg)}

			ann := c.register("ann@example.com", "pw")
			c.register("bert@example.org", "pw")
			token := c.login("ann@example.com", "pw")

			w := c.do(http.MethodGet, "/users", "", "")
			c.expect(w, http.StatusUnauthorized, "anonymous list")

			w = c.do(http.MethodGet, "/users", "", token)
			c.expect(w, http.StatusOK, "list users")
			var all []userResponse
			mustReadJSON(t, w, &all)
			if len(all) != 2 || all[0].ID >= all[1].ID {
				t.Fatalf("expected 2 users ordered by id, got %+v", all)
			}

			w = c.do(http.MethodGet, fmt.Sprintf("/users/search?id=%d", ann.ID), "", token)
			c.expect(w, http.StatusOK, "search by id")

			w = c.do(http.MethodGet, "/users/search?email=BERT@example.org", "", token)
			c.expect(w, http.StatusOK, "search by email")

			w = c.do(http.MethodGet, "/users/search?email=nobody@example.org", "", token)
			c.expect(w, http.StatusNotFound, "search miss")

			w = c.do(http.MethodGet, fmt.Sprintf("/users/search?id=%d&email=ann@example.com", ann.ID), "", token)
			c.expect(w, http.StatusBadRequest, "search with both criteria")

			w = c.do(http.MethodGet, "/users/search", "", token)
			c.expect(w, http.StatusBadRequest, "search without criteria")

			w = c.do(http.MethodGet, "/users/filter?email=EXAMPLE.ORG", "", token)
			c.expect(w, http.StatusOK, "filter by email")
			var filtered []userResponse
			mustReadJSON(t, w, &filtered)
			if len(filtered) != 1 || filtered[0].Email != "bert@example.org" {
				t.Fatalf("unexpected filter result: %+v", filtered)
			}

			// only ann has logged in
			w = c.do(http.MethodGet, "/users/filter?last_login=2000-01-01", "", token)
			c.expect(w, http.StatusOK, "filter by last_login")
			mustReadJSON(t, w, &filtered)
			if len(filtered) != 1 || filtered[0].ID != ann.ID {
				t.Fatalf("unexpected last_login filter result: %+v", filtered)
			}

			w = c.do(http.MethodGet, "/users/filter?email=nomatch", "", token)
			c.expect(w, http.StatusOK, "filter without matches")
			if strings.TrimSpace(w.Body.String()) != "[]" {
				t.Fatalf("expected empty array, got %s", w.Body.String())
			}

			w = c.do(http.MethodGet, "/users/filter?last_login=yesterday", "", token)
			c.expect(w, http.StatusBadRequest, "filter bad timestamp")
		})
	}
}

func TestAPI_OpsEndpoints(t *testing.T) {
	c := client{t: t, router: setupRouter(t, testConfig())}

	c.expect(c.do(http.MethodGet, "/healthz", "", ""), http.StatusOK, "healthz")
	c.expect(c.do(http.MethodGet, "/readyz", "", ""), http.StatusOK, "readyz")
	c.expect(c.do(http.MethodGet, "/docs/openapi.yaml", "", ""), http.StatusOK, "openapi")

	w := c.do(http.MethodGet, "/metrics", "", "")
	c.expect(w, http.StatusOK, "metrics")
	if !strings.Contains(w.Body.String(), "postboard_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}

	w = c.do(http.MethodPost, "/register", "email=a", "", "Content-Type", "text/plain")
	c.expect(w, http.StatusUnsupportedMediaType, "non-json body")
}

func TestAPI_EveryRouteIsDocumented(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := app.New(context.Background(), testConfig(), logger)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(a.Close)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))

	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi document does not parse: %v", err)
	}

	ops := map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true, "/docs": true, "/docs/openapi.yaml": true}

	for _, route := range a.Router.Routes() {
		if ops[route.Path] {
			continue
		}
		path := route.Path
		for _, seg := range strings.Split(route.Path, "/") {
			if strings.HasPrefix(seg, ":") {
				path = strings.Replace(path, seg, "{"+seg[1:]+"}", 1)
			}
		}

		methods, ok := doc.Paths[path]
		if !ok {
			t.Errorf("route %s %s is missing from openapi.yaml", route.Method, route.Path)
			continue
		}
		if _, ok := methods[strings.ToLower(route.Method)]; !ok {
			t.Errorf("method %s is not documented for %s", route.Method, path)
		}
	}
}
