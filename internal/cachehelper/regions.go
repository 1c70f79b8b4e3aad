package cachehelper

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/charlesng35/axoncache/internal/cache"
)

// Region names a family of cache keys that share a key rule and a default TTL.
type Region string

const (
	RegionChatList        Region = "chat_list"
	RegionChatMessages    Region = "chat_messages"
	RegionNewsFeed        Region = "news_feed"
	RegionFavourites      Region = "favourites"
	RegionPostDetail      Region = "post_detail"
	RegionRecommendations Region = "recommendations"
	RegionPopularPosts    Region = "popular_posts"
	RegionPage            Region = "page"
	RegionQuickValidation Region = "quick_validation"
)

// allFilter stands in for an unset optional filter in favourites keys.
const allFilter = "all"

var defaultTTLs = map[Region]time.Duration{
	RegionChatList:        300 * time.Second,
	RegionChatMessages:    300 * time.Second,
	RegionNewsFeed:        300 * time.Second,
	RegionFavourites:      600 * time.Second,
	RegionPostDetail:      1800 * time.Second,
	RegionRecommendations: 3600 * time.Second,
	RegionPopularPosts:    1800 * time.Second,
	RegionPage:            300 * time.Second,
	RegionQuickValidation: 3600 * time.Second,
}

// Regions lists every known region in a stable order.
func Regions() []Region {
	return []Region{
		RegionChatList,
		RegionChatMessages,
		RegionNewsFeed,
		RegionFavourites,
		RegionPostDetail,
		RegionRecommendations,
		RegionPopularPosts,
		RegionPage,
		RegionQuickValidation,
	}
}

// DefaultTTL returns the built-in TTL for region, or zero for an unknown region.
func DefaultTTL(region Region) time.Duration {
	return defaultTTLs[region]
}

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	_, ok := defaultTTLs[r]
	return ok
}

func (r Region) String() string { return string(r) }

// Ref identifies one cached value: its region and its unqualified key. Refs for regions
// derived from a single user carry that user so writes can be indexed for InvalidateUser.
type Ref struct {
	Region Region
	Key    string

	userID int64
	scoped bool
}

// UserID returns the user the entry belongs to, if the region is user-scoped.
func (r Ref) UserID() (int64, bool) {
	return r.userID, r.scoped
}

func userRef(region Region, userID int64, key string) Ref {
	return Ref{Region: region, Key: key, userID: userID, scoped: true}
}

// ChatList references the chat list of userID.
func ChatList(userID int64) Ref {
	return userRef(RegionChatList, userID, join("chat_list", id(userID)))
}

// ChatMessages references the message list of chatID.
func ChatMessages(chatID int64) Ref {
	return Ref{Region: RegionChatMessages, Key: join("chat_messages", id(chatID))}
}

// NewsFeed references one page of userID's feed filtered by contentType.
func NewsFeed(userID int64, contentType string, page int) Ref {
	return userRef(RegionNewsFeed, userID,
		join("news_feed", id(userID), escapeSegment(contentType), strconv.Itoa(page)))
}

// Favourites references userID's favourites, optionally narrowed by field and post type.
// Empty filters mean "all".
func Favourites(userID int64, fieldID, postType string) Ref {
	return userRef(RegionFavourites, userID,
		join("favourites", id(userID), filter(fieldID), filter(postType)))
}

// PostDetail references the detail view of postID.
func PostDetail(postID int64) Ref {
	return Ref{Region: RegionPostDetail, Key: join("post_detail", id(postID))}
}

// Recommendations references the recommendation list computed for userID.
func Recommendations(userID int64) Ref {
	return userRef(RegionRecommendations, userID, join("user", id(userID), "recommendations"))
}

// PopularPosts references the global popular posts list.
func PopularPosts() Ref {
	return Ref{Region: RegionPopularPosts, Key: "popular_posts"}
}

// Page references a rendered page by its request path.
func Page(path string) Ref {
	return Ref{Region: RegionPage, Key: join("page", escapeSegment(path))}
}

// QuickValidation references a validation result keyed by the SHA-256 of payload's JSON form.
// Map keys are encoded in sorted order, so equal payloads always hash the same.
func QuickValidation(payload any) (Ref, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Ref{}, &cache.SerializationError{Key: "quick_validate", Op: "encode", Err: err}
	}
	sum := sha256.Sum256(raw)
	return Ref{Region: RegionQuickValidation, Key: join("quick_validate", hex.EncodeToString(sum[:]))}, nil
}

func join(segments ...string) string {
	return strings.Join(segments, "_")
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func filter(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return allFilter
	}
	return escapeSegment(v)
}

// escapeSegment percent-encodes the key separator, the escape byte itself and anything outside
// printable ASCII, so that user-supplied segments cannot forge another key.
func escapeSegment(s string) string {
	needs := false
	for i := 0; i < len(s); i++ {
		if mustEscape(s[i]) {
			needs = true
			break
		}
	}
	if !needs {
		return s
	}

	const hexDigits = "0123456789ABCDEF"
	var builder strings.Builder
	builder.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if mustEscape(c) {
			builder.WriteByte('%')
			builder.WriteByte(hexDigits[c>>4])
			builder.WriteByte(hexDigits[c&0x0F])
			continue
		}
		builder.WriteByte(c)
	}
	return builder.String()
}

func mustEscape(c byte) bool {
	switch {
	case c == '_', c == '%', c == ':':
		return true
	case c <= ' ', c >= 0x7F:
		return true
	}
	return false
}
