package services

import "github.com/cppla/commboard/utils"

// VoteDirection is the direction of a vote request.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ledger is the slice of state a vote reads and rewrites: the post's counters
// and the voter's two vote-state sets.
type ledger struct {
	upvotes   int
	downvotes int
	liked     []string
	downvoted []string
}

// reconcile applies one vote of dir on postID.
//
// Voting the direction already held toggles it off and stops there. Otherwise
// the vote is recorded and an opposite vote, if any, is withdrawn. The two sets
// stay disjoint and counters never drop below zero.
func reconcile(l ledger, postID string, dir VoteDirection) ledger {
	same, opposite := &l.upvotes, &l.downvotes
	sameSet, oppositeSet := &l.liked, &l.downvoted
	if dir == VoteDown {
		same, opposite = opposite, same
		sameSet, oppositeSet = oppositeSet, sameSet
	}

	if utils.ContainsID(*sameSet, postID) {
		*same = decrement(*same)
		*sameSet = utils.RemoveID(*sameSet, postID)
		return l
	}

	*same++
	*sameSet = utils.AddID(*sameSet, postID)
	if utils.ContainsID(*oppositeSet, postID) {
		*opposite = decrement(*opposite)
		*oppositeSet = utils.RemoveID(*oppositeSet, postID)
	}
	return l
}

func decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
