package model

import "time"

// BountyPost is a paid task listing as returned by the API. ID is empty
// until the server has persisted the post; Public stays false until the
// checkout for the bounty price completes.
type BountyPost struct {
	ID           string   `json:"id,omitempty"`
	CreatorID    string   `json:"creatorId,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	BountyPrice  string   `json:"bountyPrice"`
	Public       bool     `json:"isPublic,omitempty"`
	Upvotes      int      `json:"upvotes"`
	Downvotes    int      `json:"downvotes"`
	VotedUp      []string `json:"votedUp,omitempty"`
	VotedDown    []string `json:"votedDown,omitempty"`
	CommentCount int      `json:"commentCount,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// Comment is one entry of a post's flat comment list. ParentCommentID is
// nil for top-level comments.
type Comment struct {
	ID              string  `json:"id"`
	BountyPostID    string  `json:"bountyPostId"`
	ParentCommentID *string `json:"parentCommentId,omitempty"`
	AuthorID        string  `json:"authorId"`
	AuthorUsername  string  `json:"authorUsername,omitempty"`
	Content         string  `json:"content"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	UpdatedAt       string  `json:"updatedAt,omitempty"`
}

// CommentNode is a comment with its direct replies attached.
type CommentNode struct {
	Comment
	Replies []CommentNode
}

type Solution struct {
	ID           string `json:"id"`
	BountyPostID string `json:"bountyPostId"`
	SubmitterID  string `json:"submitterId"`
	Content      string `json:"content"`
	Approved     bool   `json:"approved"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// Profile is the authenticated user's account data as reported by the
// auth endpoints.
type Profile struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// Vote direction values accepted by the vote endpoint.
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// Sort keys accepted by the public bounty list.
const (
	SortMostUpvoted = "most_upvoted"
	SortNewest      = "newest"
)

// ParseTime parses an API timestamp. The backend emits RFC3339 with
// fractional seconds; a zero time is returned for anything unparseable so
// display code never fails on a bad record.
func ParseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
