package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cardbot/pkg/activity"
	"cardbot/pkg/bot"
	"cardbot/pkg/config"
)

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*httptest.Server, string) {
	t.Helper()

	dir := t.TempDir()
	cardPath := filepath.Join(dir, "card.json")
	if err := os.WriteFile(cardPath, []byte(`{"type":"AdaptiveCard","version":"1.0","body":[]}`), 0o644); err != nil {
		t.Fatalf("write card: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.TaskModule.URL = "https://cards.example.com/taskmodule"
	if mutate != nil {
		mutate(cfg)
	}
	d, err := bot.NewDispatcher([]string{cardPath}, bot.TaskModuleSettings{
		URL:    cfg.TaskModule.URL,
		Height: cfg.TaskModule.Height,
		Width:  cfg.TaskModule.Width,
		Title:  cfg.TaskModule.Title,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	srv := httptest.NewServer(NewServer(cfg, d).Handler())
	t.Cleanup(srv.Close)
	return srv, cardPath
}

func postActivity(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/messages", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestMessageReturnsCardThenPrompt(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	resp := postActivity(t, srv, `{"type":"message","id":"m1","from":{"id":"u1"},"recipient":{"id":"bot"},"conversation":{"id":"c1"},"text":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Activities) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(out.Activities))
	}
	if len(out.Activities[0].Attachments) != 1 || out.Activities[1].Text != bot.FollowUpText {
		t.Fatalf("unexpected replies: %+v", out.Activities)
	}
	if out.Activities[0].Recipient == nil || out.Activities[0].Recipient.ID != "u1" {
		t.Fatalf("reply should be addressed to the sender: %+v", out.Activities[0])
	}
}

func TestTaskFetchReturnsContinueBody(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	resp := postActivity(t, srv, `{"type":"invoke","name":"task/fetch","id":"i1","conversation":{"id":"c1"},"value":{"data":{"k":"v"}}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body activity.InvokeResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := bot.TaskModuleResponse{
		URL:         "https://cards.example.com/taskmodule",
		FallbackURL: "https://cards.example.com/taskmodule",
		Height:      1000,
		Width:       700,
		Title:       "Task Module Title",
	}
	if body.Task.Type != "continue" || body.Task.Value != want {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestUnhandledAndMalformedActivities(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	if resp := postActivity(t, srv, `{"type":"typing"}`); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("typing status = %d", resp.StatusCode)
	}
	if resp := postActivity(t, srv, `{"type":"invoke","name":"adaptiveCard/action"}`); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("other invoke status = %d", resp.StatusCode)
	}
	if resp := postActivity(t, srv, `{"type":`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed status = %d", resp.StatusCode)
	}
	if resp := postActivity(t, srv, `{"text":"no type"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing type status = %d", resp.StatusCode)
	}
}

func TestMissingCardFailsTurn(t *testing.T) {
	t.Parallel()
	srv, cardPath := newTestServer(t, nil)
	if err := os.Remove(cardPath); err != nil {
		t.Fatalf("remove card: %v", err)
	}

	resp := postActivity(t, srv, `{"type":"message","from":{"id":"u1"},"conversation":{"id":"c1"},"text":"hi"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Gateway.TurnsPerSecond = 0.001
		cfg.Gateway.TurnBurst = 1
	})

	body := `{"type":"installationUpdate","action":"add"}`
	if resp := postActivity(t, srv, body); resp.StatusCode != http.StatusOK {
		t.Fatalf("first turn status = %d", resp.StatusCode)
	}
	if resp := postActivity(t, srv, body); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second turn status = %d", resp.StatusCode)
	}
}

func TestHealthAndCORS(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected health response: %d %v", resp.StatusCode, resp.Header)
	}

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/messages", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()
	s := NewServer(config.DefaultConfig(), nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestServeAndStop(t *testing.T) {
	t.Parallel()

	s := NewServer(config.DefaultConfig(), nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("serve returned %v", err)
	}
}

func TestHealthReportsIssues(t *testing.T) {
	t.Parallel()

	s := NewServer(config.DefaultConfig(), nil)
	s.SetHealthSource(func() []string { return []string{"sentinel: card unavailable"} })
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || len(body.Issues) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}
