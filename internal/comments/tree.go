// Package comments assembles a post's flat comment list into a reply tree.
package comments

import "github.com/taskbounty/bountyctl/internal/model"

// BuildTree turns a flat comment list into an ordered forest. Top-level
// comments (nil or empty parent id) become roots; every other comment is
// attached under its parent. Input order is preserved at every level.
// Comments whose parent is absent from the input are dropped.
func BuildTree(flat []model.Comment) []model.CommentNode {
	children := make(map[string][]model.Comment)
	var roots []model.Comment
	for _, c := range flat {
		if c.ParentCommentID == nil || *c.ParentCommentID == "" {
			roots = append(roots, c)
			continue
		}
		pid := *c.ParentCommentID
		children[pid] = append(children[pid], c)
	}

	nodes := make([]model.CommentNode, 0, len(roots))
	for _, root := range roots {
		nodes = append(nodes, attach(root, children))
	}
	return nodes
}

func attach(c model.Comment, children map[string][]model.Comment) model.CommentNode {
	node := model.CommentNode{Comment: c, Replies: []model.CommentNode{}}
	for _, child := range children[c.ID] {
		node.Replies = append(node.Replies, attach(child, children))
	}
	return node
}

// Count returns the total number of comments in a forest.
func Count(nodes []model.CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Replies)
	}
	return total
}
