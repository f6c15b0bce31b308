// Package feed wires the API client, page cache, and loader into the four
// list contexts the CLI renders: public bounties, drafts, a post's
// comments, and solutions.
package feed

import (
	"context"

	"github.com/wb-go/wbf/zlog"

	"github.com/taskbounty/bountyctl/internal/api"
	"github.com/taskbounty/bountyctl/internal/cache"
	"github.com/taskbounty/bountyctl/internal/comments"
	"github.com/taskbounty/bountyctl/internal/model"
	"github.com/taskbounty/bountyctl/internal/pager"
)

// Bounties is the public bounty feed, keyed by search text and sort order.
type Bounties struct {
	client *api.Client
	store  cache.Store
	loader *pager.Loader[model.BountyPost]

	search string
	sortBy string
}

func NewBounties(client *api.Client, store cache.Store, pageSize int) *Bounties {
	b := &Bounties{client: client, store: store}
	b.loader = pager.New(store, cache.BountyNamespace(), pageSize,
		func(ctx context.Context, page, size int) ([]model.BountyPost, error) {
			return client.ListBounties(ctx, b.search, b.sortBy, page, size)
		})
	b.Query("", model.SortMostUpvoted)
	return b
}

// Query starts a fresh feed for the given search text and sort order.
func (b *Bounties) Query(search, sortBy string) {
	if sortBy == "" {
		sortBy = model.SortMostUpvoted
	}
	b.search = search
	b.sortBy = sortBy
	b.loader.Reset(search + "_" + sortBy)
}

func (b *Bounties) LoadNext(ctx context.Context) error { return b.loader.LoadNext(ctx) }
func (b *Bounties) Items() []model.BountyPost          { return b.loader.Items() }
func (b *Bounties) HasMore() bool                      { return b.loader.HasMore() }

// Vote bumps the local counters for the post, fires the request, and
// reverts the bump if the request fails so the feed never shows a vote the
// server rejected.
func (b *Bounties) Vote(ctx context.Context, postID, direction string) error {
	bump := func(delta int) {
		b.loader.Mutate(func(items []model.BountyPost) {
			for i := range items {
				if items[i].ID != postID {
					continue
				}
				switch direction {
				case model.VoteUp:
					items[i].Upvotes += delta
				case model.VoteDown:
					items[i].Downvotes += delta
				}
			}
		})
	}

	bump(1)
	if err := b.client.Vote(ctx, postID, direction); err != nil {
		bump(-1)
		return err
	}
	// Cached pages now hold pre-vote counters; drop them so a fresh query
	// refetches.
	if err := b.store.InvalidateAll(ctx, cache.BountyNamespace()); err != nil {
		zlog.Logger.Warn().Err(err).Msg("bounty cache invalidation failed")
	}
	return nil
}

// Drafts is the caller's unpublished-post feed.
type Drafts struct {
	client *api.Client
	store  cache.Store
	loader *pager.Loader[model.BountyPost]
}

func NewDrafts(client *api.Client, store cache.Store, pageSize int) *Drafts {
	d := &Drafts{client: client, store: store}
	d.loader = pager.New(store, cache.DraftNamespace(), pageSize,
		func(ctx context.Context, page, size int) ([]model.BountyPost, error) {
			return client.ListDrafts(ctx, page, size)
		})
	return d
}

func (d *Drafts) LoadNext(ctx context.Context) error { return d.loader.LoadNext(ctx) }
func (d *Drafts) Items() []model.BountyPost          { return d.loader.Items() }
func (d *Drafts) HasMore() bool                      { return d.loader.HasMore() }

// Invalidate drops the cached draft pages and restarts the feed. Called
// after creating, publishing, or deleting a post.
func (d *Drafts) Invalidate(ctx context.Context) {
	if err := d.store.InvalidateAll(ctx, cache.DraftNamespace()); err != nil {
		zlog.Logger.Warn().Err(err).Msg("draft cache invalidation failed")
	}
	d.loader.Reset("")
}

// Comments is the comment feed for one post. Pages accumulate flat; Tree
// assembles the reply forest on demand.
type Comments struct {
	client *api.Client
	store  cache.Store
	loader *pager.Loader[model.Comment]
	postID string
}

func NewComments(client *api.Client, store cache.Store, postID string, pageSize int) *Comments {
	c := &Comments{client: client, store: store, postID: postID}
	c.loader = pager.New(store, cache.CommentsNamespace(postID), pageSize,
		func(ctx context.Context, page, size int) ([]model.Comment, error) {
			return client.ListComments(ctx, postID, page, size)
		})
	return c
}

func (c *Comments) LoadNext(ctx context.Context) error { return c.loader.LoadNext(ctx) }
func (c *Comments) Items() []model.Comment             { return c.loader.Items() }
func (c *Comments) HasMore() bool                      { return c.loader.HasMore() }

// Tree returns the accumulated comments as a reply forest.
func (c *Comments) Tree() []model.CommentNode {
	return comments.BuildTree(c.loader.Items())
}

// Post adds a comment (or reply, when parentID is set), then drops the
// cached pages and restarts the feed so the new comment shows up.
func (c *Comments) Post(ctx context.Context, parentID, content string) (model.Comment, error) {
	comment, err := c.client.PostComment(ctx, c.postID, parentID, content)
	if err != nil {
		return model.Comment{}, err
	}
	if err := c.store.InvalidateAll(ctx, cache.CommentsNamespace(c.postID)); err != nil {
		zlog.Logger.Warn().Err(err).Str("post_id", c.postID).Msg("comment cache invalidation failed")
	}
	c.loader.Reset("")
	return comment, nil
}

// Solutions is either the caller's own submissions (empty postID) or the
// submissions made to one of the caller's posts.
type Solutions struct {
	client *api.Client
	store  cache.Store
	loader *pager.Loader[model.Solution]
	postID string
}

func NewSolutions(client *api.Client, store cache.Store, postID string, pageSize int) *Solutions {
	s := &Solutions{client: client, store: store, postID: postID}
	ns := cache.MySolutionsNamespace("")
	fetch := func(ctx context.Context, page, size int) ([]model.Solution, error) {
		return client.ListMySolutions(ctx, page, size)
	}
	if postID != "" {
		ns = cache.UserSolutionsNamespace(postID)
		fetch = func(ctx context.Context, page, size int) ([]model.Solution, error) {
			return client.ListSolutions(ctx, postID, page, size)
		}
	}
	s.loader = pager.New(store, ns, pageSize, fetch)
	return s
}

func (s *Solutions) LoadNext(ctx context.Context) error { return s.loader.LoadNext(ctx) }
func (s *Solutions) Items() []model.Solution            { return s.loader.Items() }
func (s *Solutions) HasMore() bool                      { return s.loader.HasMore() }

// Invalidate drops this feed's cached pages and restarts it. Called after
// submitting, editing, deleting, or approving a solution.
func (s *Solutions) Invalidate(ctx context.Context) {
	ns := cache.MySolutionsNamespace("")
	if s.postID != "" {
		ns = cache.UserSolutionsNamespace(s.postID)
	}
	if err := s.store.InvalidateAll(ctx, ns); err != nil {
		zlog.Logger.Warn().Err(err).Str("namespace", ns).Msg("solution cache invalidation failed")
	}
	s.loader.Reset("")
}
