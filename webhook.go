package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v84/github"
)

const maxWebhookBodySize = 25 << 20

// CycleQueuer is implemented by repopool.RepoPool
type CycleQueuer interface {
	QueueCycle()
}

// GithubWebhookHandler queues next backup cycle on push and repository
// events so that new commits and repositories are picked up without
// waiting for the full interval
type GithubWebhookHandler struct {
	repoPool CycleQueuer
	secret   string
	log      *slog.Logger
}

func (wh *GithubWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		wh.log.Error("cannot read request body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !wh.isValidSignature(body, r.Header.Get(github.SHA256SignatureHeader)) {
		wh.log.Error("invalid signature")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	eventType := github.WebHookType(r)

	// only process 'ping', 'push' and 'repository' events but return ok for
	// all events to mark successful delivery
	switch eventType {
	case "ping", "push", "repository":
	default:
		return
	}

	event, err := github.ParseWebHook(eventType, body)
	if err != nil {
		wh.log.Error("cannot unmarshal json payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch e := event.(type) {
	// The ping event is a confirmation from GitHub that
	// the webhook is configured correctly.
	case *github.PingEvent:
		w.Write([]byte("pong"))
	case *github.PushEvent:
		wh.log.Debug("push event received", "repo", e.GetRepo().GetSSHURL(), "ref", e.GetRef())
		wh.repoPool.QueueCycle()
	case *github.RepositoryEvent:
		wh.log.Debug("repository event received", "repo", e.GetRepo().GetSSHURL(), "action", e.GetAction())
		wh.repoPool.QueueCycle()
	}
}

func (wh *GithubWebhookHandler) isValidSignature(message []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(wh.computeHMAC(message, wh.secret)))
}

func (wh *GithubWebhookHandler) computeHMAC(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))

	if _, err := mac.Write(message); err != nil {
		wh.log.Error("cannot compute hmac for request", "error", err)
		return ""
	}

	// GH adds `sha256=` prefix in header value
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
