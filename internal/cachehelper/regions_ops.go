package cachehelper

import "context"

func (h *Helper) CacheChatList(ctx context.Context, userID int64, value any, opts ...CallOption) error {
	return h.Cache(ctx, ChatList(userID), value, opts...)
}

func (h *Helper) GetCachedChatList(ctx context.Context, userID int64, dest any) bool {
	return h.Get(ctx, ChatList(userID), dest)
}

func (h *Helper) CacheChatMessages(ctx context.Context, chatID int64, value any, opts ...CallOption) error {
	return h.Cache(ctx, ChatMessages(chatID), value, opts...)
}

func (h *Helper) GetCachedChatMessages(ctx context.Context, chatID int64, dest any) bool {
	return h.Get(ctx, ChatMessages(chatID), dest)
}

func (h *Helper) CacheNewsFeed(ctx context.Context, userID int64, contentType string, page int, value any, opts ...CallOption) error {
	return h.Cache(ctx, NewsFeed(userID, contentType, page), value, opts...)
}

func (h *Helper) GetCachedNewsFeed(ctx context.Context, userID int64, contentType string, page int, dest any) bool {
	return h.Get(ctx, NewsFeed(userID, contentType, page), dest)
}

// CacheFavourites stores a favourites listing. Empty fieldID or postType mean "all".
func (h *Helper) CacheFavourites(ctx context.Context, userID int64, fieldID, postType string, value any, opts ...CallOption) error {
	return h.Cache(ctx, Favourites(userID, fieldID, postType), value, opts...)
}

func (h *Helper) GetCachedFavourites(ctx context.Context, userID int64, fieldID, postType string, dest any) bool {
	return h.Get(ctx, Favourites(userID, fieldID, postType), dest)
}

func (h *Helper) CachePostDetail(ctx context.Context, postID int64, value any, opts ...CallOption) error {
	return h.Cache(ctx, PostDetail(postID), value, opts...)
}

func (h *Helper) GetCachedPostDetail(ctx context.Context, postID int64, dest any) bool {
	return h.Get(ctx, PostDetail(postID), dest)
}

func (h *Helper) CacheRecommendations(ctx context.Context, userID int64, value any, opts ...CallOption) error {
	return h.Cache(ctx, Recommendations(userID), value, opts...)
}

func (h *Helper) GetCachedRecommendations(ctx context.Context, userID int64, dest any) bool {
	return h.Get(ctx, Recommendations(userID), dest)
}

func (h *Helper) CachePopularPosts(ctx context.Context, value any, opts ...CallOption) error {
	return h.Cache(ctx, PopularPosts(), value, opts...)
}

func (h *Helper) GetCachedPopularPosts(ctx context.Context, dest any) bool {
	return h.Get(ctx, PopularPosts(), dest)
}

func (h *Helper) CachePage(ctx context.Context, path string, value any, opts ...CallOption) error {
	return h.Cache(ctx, Page(path), value, opts...)
}

func (h *Helper) GetCachedPage(ctx context.Context, path string, dest any) bool {
	return h.Get(ctx, Page(path), dest)
}

// CacheQuickValidation stores a validation result for payload. A payload that cannot be
// encoded is reported like any other serialization failure.
func (h *Helper) CacheQuickValidation(ctx context.Context, payload, value any, opts ...CallOption) error {
	ref, err := QuickValidation(payload)
	if err != nil {
		return err
	}
	return h.Cache(ctx, ref, value, opts...)
}

func (h *Helper) GetCachedQuickValidation(ctx context.Context, payload, dest any) bool {
	ref, err := QuickValidation(payload)
	if err != nil {
		return false
	}
	return h.Get(ctx, ref, dest)
}
