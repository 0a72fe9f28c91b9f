package stores

import (
	log "github.com/sirupsen/logrus"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

// BookmarkStore vends the per-user bookmark index, the single source of truth
// for "is this post saved". The per-post bookmark view is derived by lookup
// against this index, never stored on the post, which removes the dual-write
// consistency hazard of keeping both.
type BookmarkStore interface {
	// Toggle flips the index entry and reports the resulting state. Entries
	// are removed on un-bookmark, not set false.
	Toggle(userID, postID string) (bool, *fe.FeedErr)
	IsBookmarked(userID, postID string) (bool, *fe.FeedErr)
	// List returns the ids the user currently has bookmarked.
	List(userID string) (map[string]bool, *fe.FeedErr)
	// BookmarkedPosts joins the index against the post collection, preserving
	// feed order and skipping ids whose post no longer exists.
	BookmarkedPosts(userID string) ([]md.Post, *fe.FeedErr)
}

// KVBookmarkStore implements BookmarkStore on top of the kv accessor.
type KVBookmarkStore struct {
	KV    kv.Store
	Posts PostStore
}

func (s *KVBookmarkStore) load(userID string) (map[string]bool, *fe.FeedErr) {
	index := map[string]bool{}
	if _, err := s.KV.Get(cst.BookmarksKey(userID), &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *KVBookmarkStore) Toggle(userID, postID string) (bool, *fe.FeedErr) {
	clog := log.WithFields(log.Fields{"userID": userID, "postID": postID})
	index, err := s.load(userID)
	if err != nil {
		return false, err
	}
	bookmarked := !index[postID]
	if bookmarked {
		index[postID] = true
	} else {
		delete(index, postID)
	}
	if err := s.KV.Set(cst.BookmarksKey(userID), index); err != nil {
		clog.WithError(err).Error("error saving bookmark index")
		return false, err
	}
	return bookmarked, nil
}

func (s *KVBookmarkStore) IsBookmarked(userID, postID string) (bool, *fe.FeedErr) {
	index, err := s.load(userID)
	if err != nil {
		return false, err
	}
	return index[postID], nil
}

func (s *KVBookmarkStore) List(userID string) (map[string]bool, *fe.FeedErr) {
	return s.load(userID)
}

func (s *KVBookmarkStore) BookmarkedPosts(userID string) ([]md.Post, *fe.FeedErr) {
	index, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	posts, err := s.Posts.List()
	if err != nil {
		return nil, err
	}
	saved := []md.Post{}
	for _, p := range posts {
		if index[p.ID] {
			saved = append(saved, p)
		}
	}
	return saved, nil
}
