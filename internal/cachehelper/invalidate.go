package cachehelper

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/pkg/metrics"
)

// InvalidatePost drops the cached detail view of postID.
func (h *Helper) InvalidatePost(ctx context.Context, postID int64) {
	h.Delete(ctx, PostDetail(postID))
	metrics.RecordInvalidation(RegionPostDetail.String())
}

// InvalidateChat drops the cached message list of chatID.
func (h *Helper) InvalidateChat(ctx context.Context, chatID int64) {
	h.Delete(ctx, ChatMessages(chatID))
	metrics.RecordInvalidation(RegionChatMessages.String())
}

// InvalidatePopularPosts drops the global popular posts list.
func (h *Helper) InvalidatePopularPosts(ctx context.Context) {
	h.Delete(ctx, PopularPosts())
	metrics.RecordInvalidation(RegionPopularPosts.String())
}

// InvalidatePage drops the cached rendering of path.
func (h *Helper) InvalidatePage(ctx context.Context, path string) {
	h.Delete(ctx, Page(path))
	metrics.RecordInvalidation(RegionPage.String())
}

// InvalidateUser drops every entry derived from userID: the keys recorded in the index for
// the user plus those computable from the id alone. Index failures are logged and the
// computable keys are still removed.
func (h *Helper) InvalidateUser(ctx context.Context, userID int64) {
	keys := []string{h.Key(ChatList(userID)), h.Key(Recommendations(userID))}

	var tracked []string
	if h.index != nil {
		group := userGroup(userID)
		members, err := h.index.Members(ctx, group)
		if err != nil {
			h.log.Warn("user key index unavailable", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			tracked = members
		}
	}
	keys = appendUnique(keys, tracked...)

	// References stay in the index until the sweeper prunes them.
	h.backend.Delete(ctx, keys...)

	metrics.RecordInvalidation("user")
	h.log.Debug("user cache invalidated", zap.Int64("user_id", userID), zap.Int("keys", len(keys)))
}

func appendUnique(keys []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(keys)+len(extra))
	for _, key := range keys {
		seen[key] = struct{}{}
	}
	for _, key := range extra {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
