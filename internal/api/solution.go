package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/taskbounty/bountyctl/internal/model"
)

// ListSolutions fetches one page of the solutions submitted to a post.
// Only the post's creator sees full solution content server-side.
func (c *Client) ListSolutions(ctx context.Context, postID string, page, size int) ([]model.Solution, error) {
	if postID == "" {
		return nil, fmt.Errorf("bounty id is empty")
	}
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	resp, err := c.get(ctx, "/solutions/"+postID, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return nil, statusError(resp)
	}
	return decodePage[model.Solution](resp)
}

// ListMySolutions fetches one page of the caller's own submissions across
// all posts.
func (c *Client) ListMySolutions(ctx context.Context, page, size int) ([]model.Solution, error) {
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	resp, err := c.get(ctx, "/solutions/my-solutions", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return nil, statusError(resp)
	}
	return decodePage[model.Solution](resp)
}

// SubmitSolution submits a solution to a post.
func (c *Client) SubmitSolution(ctx context.Context, postID, content string) (model.Solution, error) {
	if postID == "" {
		return model.Solution{}, fmt.Errorf("bounty id is empty")
	}
	body := struct {
		BountyPostID string `json:"bountyPostId"`
		Content      string `json:"content"`
	}{BountyPostID: postID, Content: content}
	resp, err := c.do(ctx, http.MethodPost, "/solutions/submit", nil, body)
	if err != nil {
		return model.Solution{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Solution{}, statusError(resp)
	}
	var sol model.Solution
	if err := json.NewDecoder(resp.Body).Decode(&sol); err != nil {
		return model.Solution{}, fmt.Errorf("decode solution: %w", err)
	}
	return sol, nil
}

// UpdateSolution replaces the content of an unapproved submission.
func (c *Client) UpdateSolution(ctx context.Context, id, content string) (model.Solution, error) {
	if id == "" {
		return model.Solution{}, fmt.Errorf("solution id is empty")
	}
	body := struct {
		Content string `json:"content"`
	}{Content: content}
	resp, err := c.do(ctx, http.MethodPatch, "/solutions/"+id, nil, body)
	if err != nil {
		return model.Solution{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Solution{}, statusError(resp)
	}
	var sol model.Solution
	if err := json.NewDecoder(resp.Body).Decode(&sol); err != nil {
		return model.Solution{}, fmt.Errorf("decode solution: %w", err)
	}
	return sol, nil
}

// DeleteSolution withdraws one of the caller's submissions.
func (c *Client) DeleteSolution(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("solution id is empty")
	}
	resp, err := c.do(ctx, http.MethodDelete, "/solutions/"+id, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}
