// Package constants vends constants used in various components of feed service, e.g., env var names
// and persisted storage keys.
package constants

const (
	// -------------- env vars --------------
	// common
	EnvVerbose = "FEED_VERBOSE"
	// storage
	EnvDataDir = "FEED_DATA_DIR"
	// server
	EnvAppHost        = "FEED_HOST"
	EnvAppPort        = "FEED_PORT"
	EnvSessionKey     = "FEED_SESSION_KEY"
	EnvReqBodySizeMax = "FEED_REQ_BODY_SIZE_MAX_BYTE"
	EnvReaderAddr     = "FEED_READER_ADDR"
	EnvReelsURL       = "FEED_REELS_URL"
	EnvReelsTimeout   = "FEED_REELS_TIMEOUT"
	EnvReelsCacheTTL  = "FEED_REELS_CACHE_TTL"
	EnvReelsCacheSize = "FEED_REELS_CACHE_SIZE"
	// reconciler
	EnvReconcilerSweepFreq = "FEED_RECONCILER_SWEEP_FREQ"
	EnvReconcilerCacheSize = "FEED_RECONCILER_CACHE_SIZE"

	// -------------- persisted storage keys --------------
	// These key names are part of the on-disk format and must not change:
	// data written by earlier releases is read back under the same names.
	KeyUsers        = "users"
	KeyCurrentUser  = "currentUser"
	KeyIsLoggedIn   = "isLoggedIn"
	KeyPosts        = "posts"
	KeyUserSettings = "userSettings"
	// per-user bookmark index lives under bookmarks_<userId>
	KeyPrefixBookmarks = "bookmarks_"
	// cookie-backed session blobs live under session_<sessionId>
	KeyPrefixSession = "session_"

	// -------------- misc --------------
	SessionCookieName = "feed_session"
	LogFieldFuncName  = "funcName"
)

// BookmarksKey returns the storage key of the given user's bookmark index.
func BookmarksKey(userID string) string {
	return KeyPrefixBookmarks + userID
}

// SessionKey returns the storage key of a cookie session blob.
func SessionKey(sessionID string) string {
	return KeyPrefixSession + sessionID
}
