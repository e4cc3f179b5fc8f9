package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeQueuer struct {
	queued atomic.Int32
}

func (f *fakeQueuer) QueueCycle() {
	f.queued.Add(1)
}

func Test_webhook(t *testing.T) {
	queuer := &fakeQueuer{}
	wh := &GithubWebhookHandler{
		repoPool: queuer,
		secret:   "a1b2c3d4e5",
		log:      slog.Default(),
	}

	server := httptest.NewServer(http.Handler(wh))
	defer server.Close()

	send := func(t *testing.T, method, event, body, signature string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, server.URL, strings.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to make a request: %v", err)
		}
		req.Header.Set("X-Hub-Signature-256", signature)
		if event != "" {
			req.Header.Set("X-GitHub-Event", event)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	body := `{"zen":"Keep it logically awesome.","hook_id":1}`
	signature := wh.computeHMAC([]byte(body), wh.secret)

	t.Run("validate signature", func(t *testing.T) {
		if !wh.isValidSignature([]byte(body), signature) {
			t.Errorf("isValidSignature() expected true")
		}

		invalidSig := wh.computeHMAC([]byte(body), "invalid-secret")

		if wh.isValidSignature([]byte(body), invalidSig) {
			t.Errorf("isValidSignature() expected false")
		}

		if wh.isValidSignature([]byte{}, "") {
			t.Errorf("isValidSignature() expected false for emtpy signature")
		}
	})

	t.Run("invalid method", func(t *testing.T) {
		resp := send(t, http.MethodGet, "ping", body, signature)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status %v, got %v", http.StatusBadRequest, resp.StatusCode)
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		resp := send(t, http.MethodPost, "ping", body, "sha256=00")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status %v, got %v", http.StatusBadRequest, resp.StatusCode)
		}
	})

	t.Run("ping event", func(t *testing.T) {
		resp := send(t, http.MethodPost, "ping", body, signature)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status %v, got %v", http.StatusOK, resp.StatusCode)
		}

		reply, _ := io.ReadAll(resp.Body)
		if string(reply) != "pong" {
			t.Errorf("Expected pong for ping event")
		}
	})

	t.Run("push event", func(t *testing.T) {
		before := queuer.queued.Load()

		push := `{"ref":"refs/heads/main","repository":{"name":"widgets","ssh_url":"git@github.com:acme/widgets.git"}}`
		resp := send(t, http.MethodPost, "push", push, wh.computeHMAC([]byte(push), wh.secret))
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status %v, got %v", http.StatusOK, resp.StatusCode)
		}
		if got := queuer.queued.Load() - before; got != 1 {
			t.Errorf("Expected 1 queued cycle, got %d", got)
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		payload := `{"ref":`
		resp := send(t, http.MethodPost, "push", payload, wh.computeHMAC([]byte(payload), wh.secret))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status %v, got %v", http.StatusBadRequest, resp.StatusCode)
		}
	})

	t.Run("ignored event", func(t *testing.T) {
		before := queuer.queued.Load()

		resp := send(t, http.MethodPost, "issues", body, signature)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status %v, got %v", http.StatusOK, resp.StatusCode)
		}
		if queuer.queued.Load() != before {
			t.Errorf("Expected no queued cycle for issues event")
		}
	})
}
