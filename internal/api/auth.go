package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/taskbounty/bountyctl/internal/model"
)

// authResponse is the envelope every /auth endpoint returns.
type authResponse struct {
	Status  string        `json:"status"`
	Data    model.Profile `json:"data"`
	Message string        `json:"message"`
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	BirthDate   string `json:"birthDate"`
	CountryCode string `json:"countryCode"`
}

// Register creates an account. The server replies with the new profile and
// sends a verification code to the given email address.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (model.Profile, error) {
	resp, err := c.do(ctx, http.MethodPost, "/auth/register", nil, req)
	if err != nil {
		return model.Profile{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Profile{}, statusError(resp)
	}
	var env authResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return model.Profile{}, fmt.Errorf("decode register response: %w", err)
	}
	return env.Data, nil
}

// Login authenticates with email and password. On success the jwt arrives
// in a Set-Cookie header; it is stored into the session together with the
// profile from the response body.
func (c *Client) Login(ctx context.Context, email, password string) (model.Profile, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body)
	if err != nil {
		return model.Profile{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Profile{}, statusError(resp)
	}

	var env authResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return model.Profile{}, fmt.Errorf("decode login response: %w", err)
	}

	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == "jwt" {
			token = ck.Value
		}
	}
	if token == "" {
		return model.Profile{}, fmt.Errorf("login response carried no jwt cookie")
	}
	if err := c.sess.Login(env.Data, token); err != nil {
		return model.Profile{}, fmt.Errorf("persist session: %w", err)
	}
	return env.Data, nil
}

// Verify confirms the email verification code sent during registration.
func (c *Client) Verify(ctx context.Context, code string) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/verify", url.Values{"code": {code}}, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}

// ResendCode asks the server to re-send the verification code.
func (c *Client) ResendCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	resp, err := c.do(ctx, http.MethodPost, "/auth/resend_code", nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}

// Profile fetches the authenticated user's account data.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	return c.fetchProfile(ctx, "/auth/profile")
}

// ProfileByID fetches another user's public profile.
func (c *Client) ProfileByID(ctx context.Context, userID string) (model.Profile, error) {
	return c.fetchProfile(ctx, "/auth/profile/"+userID)
}

func (c *Client) fetchProfile(ctx context.Context, path string) (model.Profile, error) {
	resp, err := c.get(ctx, path, nil)
	if err != nil {
		return model.Profile{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Profile{}, statusError(resp)
	}
	var env authResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return model.Profile{}, fmt.Errorf("decode profile response: %w", err)
	}
	return env.Data, nil
}

// UpdateProfileRequest carries the editable profile fields; empty fields
// are left unchanged by the server.
type UpdateProfileRequest struct {
	Username    string `json:"username,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// UpdateProfile edits the account and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (model.Profile, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/auth/update", nil, req)
	if err != nil {
		return model.Profile{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Profile{}, statusError(resp)
	}
	var env authResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return model.Profile{}, fmt.Errorf("decode update response: %w", err)
	}
	if err := c.sess.SetProfile(env.Data); err != nil {
		return model.Profile{}, fmt.Errorf("persist session: %w", err)
	}
	return env.Data, nil
}
