// Package checkout runs the publish-a-draft payment flow: fetch the hosted
// checkout URL, hand it to the user, catch the provider's success redirect
// on a short-lived localhost listener, and confirm the session with the
// API so the post goes public.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wb-go/wbf/zlog"

	"github.com/taskbounty/bountyctl/internal/api"
)

// ErrCancelled is returned when the provider redirects to the cancel route
// instead of completing payment.
var ErrCancelled = errors.New("payment cancelled")

// Run drives one checkout to completion. announce receives the hosted
// checkout URL to present to the user. Run blocks until the provider
// redirect arrives or ctx is done.
func Run(ctx context.Context, client *api.Client, addr, postID string, announce func(url string)) error {
	checkoutURL, err := client.CheckoutURL(ctx, postID)
	if err != nil {
		return fmt.Errorf("request checkout session: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("start callback listener: %w", err)
	}

	sessionCh := make(chan string, 1)
	cancelCh := make(chan struct{}, 1)

	r := chi.NewRouter()
	r.Get("/stripe/payment_success/bounty_post", func(w http.ResponseWriter, req *http.Request) {
		sid := req.URL.Query().Get("session_id")
		if sid == "" {
			http.Error(w, "missing session_id", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>Payment received. You can close this tab and return to the terminal.</body></html>")
		select {
		case sessionCh <- sid:
		default:
		}
	})
	r.Get("/stripe/payment_cancel", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>Payment cancelled.</body></html>")
		select {
		case cancelCh <- struct{}{}:
		default:
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Logger.Warn().Err(err).Msg("callback listener shutdown failed")
		}
	}()

	announce(checkoutURL)

	select {
	case sid := <-sessionCh:
		if err := client.ConfirmPayment(ctx, postID, sid); err != nil {
			return fmt.Errorf("confirm payment: %w", err)
		}
		return nil
	case <-cancelCh:
		return ErrCancelled
	case err := <-srvErr:
		return fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}
