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

// ListBounties fetches one page of the public bounty feed. search may be
// empty; sortBy is one of the model.Sort* values.
func (c *Client) ListBounties(ctx context.Context, search, sortBy string, page, size int) ([]model.BountyPost, error) {
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	if search != "" {
		q.Set("search", search)
	}
	if sortBy != "" {
		q.Set("sortBy", sortBy)
	}
	resp, err := c.get(ctx, "/bounty_post", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return nil, statusError(resp)
	}
	return decodePage[model.BountyPost](resp)
}

// ListDrafts fetches one page of the caller's unpublished drafts.
func (c *Client) ListDrafts(ctx context.Context, page, size int) ([]model.BountyPost, error) {
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	resp, err := c.get(ctx, "/bounty_post/draft", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return nil, statusError(resp)
	}
	return decodePage[model.BountyPost](resp)
}

// GetBounty fetches a single post by id.
func (c *Client) GetBounty(ctx context.Context, id string) (model.BountyPost, error) {
	if id == "" {
		return model.BountyPost{}, fmt.Errorf("bounty id is empty")
	}
	resp, err := c.get(ctx, "/bounty_post/"+id, nil)
	if err != nil {
		return model.BountyPost{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.BountyPost{}, statusError(resp)
	}
	var post model.BountyPost
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return model.BountyPost{}, fmt.Errorf("decode bounty: %w", err)
	}
	return post, nil
}

// CreateBounty creates a draft. The post stays private until its bounty
// price has been paid through checkout.
func (c *Client) CreateBounty(ctx context.Context, title, description, price string) (model.BountyPost, error) {
	if err := c.allow("post", c.limits.PostPerMinute); err != nil {
		return model.BountyPost{}, err
	}
	body := model.BountyPost{Title: title, Description: description, BountyPrice: price}
	resp, err := c.do(ctx, http.MethodPost, "/bounty_post", nil, body)
	if err != nil {
		return model.BountyPost{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.BountyPost{}, statusError(resp)
	}
	var post model.BountyPost
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return model.BountyPost{}, fmt.Errorf("decode created bounty: %w", err)
	}
	return post, nil
}

// Vote registers an up or down vote on a post. direction is model.VoteUp
// or model.VoteDown. Voting the same direction twice is the server's
// concern; the client just reports the result.
func (c *Client) Vote(ctx context.Context, postID, direction string) error {
	if postID == "" {
		return fmt.Errorf("bounty id is empty")
	}
	if err := c.allow("vote", c.limits.VotePerMinute); err != nil {
		return err
	}
	q := url.Values{"type": {direction}}
	resp, err := c.do(ctx, http.MethodPost, "/bounty_post/"+postID+"/vote", q, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}

// DeleteBounty removes one of the caller's posts.
func (c *Client) DeleteBounty(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("bounty id is empty")
	}
	resp, err := c.do(ctx, http.MethodDelete, "/bounty_post/"+id, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return statusError(resp)
	}
	return nil
}
