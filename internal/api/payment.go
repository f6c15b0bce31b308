package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CheckoutURL asks the server for a hosted checkout page covering the
// post's bounty price. The user completes payment in a browser; the
// provider then redirects to the configured success URL.
func (c *Client) CheckoutURL(ctx context.Context, postID string) (string, error) {
	if postID == "" {
		return "", fmt.Errorf("bounty id is empty")
	}
	resp, err := c.get(ctx, "/stripe/checkout/"+postID, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return "", statusError(resp)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("checkout response carried no url")
	}
	return out.URL, nil
}

// ConfirmPayment reports a completed checkout session back to the server,
// which flips the post public.
func (c *Client) ConfirmPayment(ctx context.Context, postID, sessionID string) error {
	if postID == "" || sessionID == "" {
		return fmt.Errorf("post id and session id are required")
	}
	q := url.Values{
		"bountyPostId": {postID},
		"session_id":   {sessionID},
	}
	resp, err := c.get(ctx, "/stripe/payment_success/bounty_post", q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}

// ApproveSolution accepts a submitted solution and releases the bounty to
// its author. The server first attempts a payout to the solver's connected
// account and falls back to a transfer when the payout is not possible.
func (c *Client) ApproveSolution(ctx context.Context, solutionID string) error {
	if solutionID == "" {
		return fmt.Errorf("solution id is empty")
	}
	q := url.Values{"solutionId": {solutionID}}
	resp, err := c.do(ctx, http.MethodPost, "/stripe/approve_solution/payout", q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if isSuccess(resp) {
		return nil
	}
	payoutErr := statusError(resp)

	resp2, err := c.do(ctx, http.MethodPost, "/stripe/approve_solution/transfer", q, nil)
	if err != nil {
		return err
	}
	defer resp2.Body.Close()
	if !isSuccess(resp2) {
		return fmt.Errorf("payout and transfer both failed: %w", payoutErr)
	}
	return nil
}

// OnboardingURL fetches the payment provider's account onboarding link for
// the caller, creating the connected account first if none exists.
func (c *Client) OnboardingURL(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "/stripe/onboarding", nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		if err := c.createAccount(ctx); err != nil {
			return "", err
		}
		resp, err = c.get(ctx, "/stripe/onboarding", nil)
		if err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return "", statusError(resp)
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode onboarding response: %w", err)
	}
	return out.URL, nil
}

func (c *Client) createAccount(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/stripe/create_account", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}
