package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskbounty/bountyctl/internal/api"
	"github.com/taskbounty/bountyctl/internal/config"
	"github.com/taskbounty/bountyctl/internal/session"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func newTestClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Config{BaseURL: srv.URL, PageSize: 10, HTTPTimeout: 5 * time.Second}
	return api.New(cfg, session.Load(filepath.Join(t.TempDir(), "session.json")))
}

func TestRunConfirmsAfterRedirect(t *testing.T) {
	var confirmed string
	mux := http.NewServeMux()
	mux.HandleFunc("/stripe/checkout/b1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example.com/cs_123"})
	})
	mux.HandleFunc("/stripe/payment_success/bounty_post", func(w http.ResponseWriter, r *http.Request) {
		confirmed = r.URL.Query().Get("bountyPostId") + "/" + r.URL.Query().Get("session_id")
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t, mux)

	addr := freeAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var announced string
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, client, addr, "b1", func(url string) {
			announced = url
			// Play the payment provider: redirect to the success URL.
			go func() {
				resp, err := http.Get(fmt.Sprintf("http://%s/stripe/payment_success/bounty_post?bountyPostId=b1&session_id=cs_123", addr))
				if err == nil {
					resp.Body.Close()
				}
			}()
		})
	}()

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if announced != "https://pay.example.com/cs_123" {
		t.Fatalf("unexpected checkout url: %s", announced)
	}
	if confirmed != "b1/cs_123" {
		t.Fatalf("unexpected confirmation: %s", confirmed)
	}
}

func TestRunCancelRoute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stripe/checkout/b1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example.com/cs_123"})
	})
	client := newTestClient(t, mux)

	addr := freeAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Run(ctx, client, addr, "b1", func(string) {
		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/stripe/payment_cancel", addr))
			if err == nil {
				resp.Body.Close()
			}
		}()
	})
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestRunHonorsContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stripe/checkout/b1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example.com/cs_123"})
	})
	client := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	err := Run(ctx, client, freeAddr(t), "b1", func(string) { cancel() })
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunFailsWithoutCheckoutSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stripe/checkout/b1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})
	client := newTestClient(t, mux)

	err := Run(context.Background(), client, freeAddr(t), "b1", func(string) {
		t.Errorf("announce should not run when the session request fails")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
