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

// ListComments fetches one page of a post's flat comment list. Replies
// arrive in the same list with ParentCommentID set; tree assembly is the
// caller's job.
func (c *Client) ListComments(ctx context.Context, postID string, page, size int) ([]model.Comment, error) {
	if postID == "" {
		return nil, fmt.Errorf("bounty id is empty")
	}
	q := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}
	resp, err := c.get(ctx, "/comment/"+postID+"/bounty_post", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return nil, statusError(resp)
	}
	return decodePage[model.Comment](resp)
}

// PostComment adds a comment to a post. parentID is empty for a top-level
// comment and a comment id for a reply.
func (c *Client) PostComment(ctx context.Context, postID, parentID, content string) (model.Comment, error) {
	if postID == "" {
		return model.Comment{}, fmt.Errorf("bounty id is empty")
	}
	if err := c.allow("comment", c.limits.CommentPerMinute); err != nil {
		return model.Comment{}, err
	}
	body := struct {
		Content         string  `json:"content"`
		ParentCommentID *string `json:"parentCommentId,omitempty"`
	}{Content: content}
	if parentID != "" {
		body.ParentCommentID = &parentID
	}
	resp, err := c.do(ctx, http.MethodPost, "/comment/"+postID+"/bounty_post", nil, body)
	if err != nil {
		return model.Comment{}, err
	}
	defer resp.Body.Close()
	if !isSuccess(resp) {
		return model.Comment{}, statusError(resp)
	}
	var comment model.Comment
	if err := json.NewDecoder(resp.Body).Decode(&comment); err != nil {
		return model.Comment{}, fmt.Errorf("decode comment: %w", err)
	}
	return comment, nil
}
