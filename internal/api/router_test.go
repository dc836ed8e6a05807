package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nikhilbhutani/livehint/internal/auth"
	"github.com/nikhilbhutani/livehint/internal/completion"
	"github.com/nikhilbhutani/livehint/internal/config"
	"github.com/nikhilbhutani/livehint/internal/recommend"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}},
	}
}

func newServer(t *testing.T, cfg *config.Config, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Provider == nil {
		deps.Provider = completion.NewKeywordMatcher(nil, "")
	}
	srv := httptest.NewServer(NewRouter(cfg, deps).Setup())
	t.Cleanup(srv.Close)
	return srv
}

func postGPT(t *testing.T, url, body, token string) (int, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url+"/api/gpt", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func TestGPTRoundTrip(t *testing.T) {
	srv := newServer(t, testConfig(), Deps{})

	code, body := postGPT(t, srv.URL, `{"text":"history"}`, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body != `{"recommendation":"History is the study of past events, particularly in human affairs."}` {
		t.Errorf("body = %s", body)
	}

	code, body = postGPT(t, srv.URL, `{"text":"xyz"}`, "")
	if code != http.StatusOK || !strings.Contains(body, completion.GenericResponse) {
		t.Errorf("xyz: %d %s", code, body)
	}

	code, body = postGPT(t, srv.URL, `{"txt":"history"}`, "")
	if code != http.StatusInternalServerError || !strings.Contains(body, `"error":"Failed to fetch GPT response"`) {
		t.Errorf("missing text: %d %s", code, body)
	}
}

func TestRecommendClientAgainstRouter(t *testing.T) {
	srv := newServer(t, testConfig(), Deps{})
	client := recommend.NewClient(recommend.Config{BaseURL: srv.URL + "/"})

	got, err := client.Recommend(t.Context(), "Tell me about POLITICS and science")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got != "Politics is a process by which groups of people make collective decisions." {
		t.Errorf("got %q", got)
	}
}

func TestGPTRequiresTokenWhenSecretSet(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "s3cret"
	srv := newServer(t, cfg, Deps{})

	if code, _ := postGPT(t, srv.URL, `{"text":"history"}`, ""); code != http.StatusUnauthorized {
		t.Errorf("without token: status = %d, want 401", code)
	}

	tok, _ := auth.IssueToken("s3cret", "tui", time.Hour)
	if code, _ := postGPT(t, srv.URL, `{"text":"history"}`, tok); code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", code)
	}

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz should not require auth, got %d", resp.StatusCode)
	}
}

func TestGPTRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	srv := newServer(t, cfg, Deps{})

	if code, _ := postGPT(t, srv.URL, `{"text":"history"}`, ""); code != http.StatusOK {
		t.Fatalf("first status = %d", code)
	}
	if code, _ := postGPT(t, srv.URL, `{"text":"history"}`, ""); code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", code)
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	srv := newServer(t, testConfig(), Deps{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a metrics handler", resp.StatusCode)
	}

	srv = newServer(t, testConfig(), Deps{MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livehint_completion_requests_total 1\n"))
	})})
	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "livehint_completion_requests_total") {
		t.Errorf("body = %s", b)
	}
}
