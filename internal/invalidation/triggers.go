package invalidation

import (
	"context"
	"errors"
)

// Invalidator is the subset of the cache helper that write paths need.
type Invalidator interface {
	InvalidatePost(ctx context.Context, postID int64)
	InvalidateChat(ctx context.Context, chatID int64)
	InvalidateUser(ctx context.Context, userID int64)
	InvalidatePopularPosts(ctx context.Context)
}

// Triggers maps domain mutations to the cache regions they make stale. Write paths call the
// matching method synchronously once the source of truth has committed. None of the methods
// fail; cache errors are logged by the helper.
type Triggers struct {
	cache Invalidator
}

// New constructs Triggers around the cache helper.
func New(cache Invalidator) (*Triggers, error) {
	if cache == nil {
		return nil, errors.New("invalidation: cache helper is required")
	}
	return &Triggers{cache: cache}, nil
}

// MessageSent drops the chat's cached messages.
func (t *Triggers) MessageSent(ctx context.Context, chatID int64) {
	t.cache.InvalidateChat(ctx, chatID)
}

// ChatUpdated drops the chat's cached messages after a rename or settings change.
func (t *Triggers) ChatUpdated(ctx context.Context, chatID int64) {
	t.cache.InvalidateChat(ctx, chatID)
}

// GroupChatCreated refreshes the chat lists of the creator and every member.
func (t *Triggers) GroupChatCreated(ctx context.Context, creatorID int64, memberIDs ...int64) {
	t.users(ctx, append([]int64{creatorID}, memberIDs...))
}

// PersonalChatCreated refreshes the chat lists of both participants.
func (t *Triggers) PersonalChatCreated(ctx context.Context, userA, userB int64) {
	t.users(ctx, []int64{userA, userB})
}

// ChatMembersAdded refreshes the added users and, if anyone was added, the chat itself.
func (t *Triggers) ChatMembersAdded(ctx context.Context, chatID int64, userIDs ...int64) {
	if len(userIDs) == 0 {
		return
	}
	t.users(ctx, userIDs)
	t.cache.InvalidateChat(ctx, chatID)
}

// ChatMemberRemoved refreshes the removed user and the chat.
func (t *Triggers) ChatMemberRemoved(ctx context.Context, chatID, userID int64) {
	t.cache.InvalidateUser(ctx, userID)
	t.cache.InvalidateChat(ctx, chatID)
}

// PostCreated refreshes the author's feeds.
func (t *Triggers) PostCreated(ctx context.Context, authorID int64) {
	t.cache.InvalidateUser(ctx, authorID)
}

func (t *Triggers) PostLiked(ctx context.Context, postID int64) {
	t.cache.InvalidatePost(ctx, postID)
}

func (t *Triggers) PostCommented(ctx context.Context, postID int64) {
	t.cache.InvalidatePost(ctx, postID)
}

// FavouriteToggled refreshes the user's favourites and the post's counters.
func (t *Triggers) FavouriteToggled(ctx context.Context, userID, postID int64) {
	t.cache.InvalidateUser(ctx, userID)
	t.cache.InvalidatePost(ctx, postID)
}

// PostDeleted drops the post, the author's feeds and the popular posts list.
func (t *Triggers) PostDeleted(ctx context.Context, postID, authorID int64) {
	t.cache.InvalidatePost(ctx, postID)
	t.cache.InvalidateUser(ctx, authorID)
	t.cache.InvalidatePopularPosts(ctx)
}

// FriendshipChanged refreshes both users; friend feeds are keyed per user.
func (t *Triggers) FriendshipChanged(ctx context.Context, userA, userB int64) {
	t.users(ctx, []int64{userA, userB})
}

func (t *Triggers) CommunityMembershipChanged(ctx context.Context, userID int64) {
	t.cache.InvalidateUser(ctx, userID)
}

func (t *Triggers) users(ctx context.Context, userIDs []int64) {
	seen := make(map[int64]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		t.cache.InvalidateUser(ctx, userID)
	}
}
