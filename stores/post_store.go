package stores

import (
	"sort"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	log "github.com/sirupsen/logrus"
	"verdant.io/feed/common/logging"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

// Feed filters accepted by Search.
const (
	FilterNone  = ""
	FilterText  = "text"
	FilterImage = "image"
)

// PostStore vends the interface to interact with the feed's post collection.
// The collection is one JSON array under a single key; every mutation loads
// the whole array, transforms it and writes it back. Two concurrent writers
// race with last-write-wins semantics, an accepted limit of the local store.
type PostStore interface {
	// List returns all posts sorted by timestamp descending, with likeCount
	// recomputed from the likes map.
	List() ([]md.Post, *fe.FeedErr)
	Get(id string) (*md.Post, *fe.FeedErr)
	// Create prepends a new post, keeping the stored array newest-first.
	Create(content, image string, author md.Author) (*md.Post, *fe.FeedErr)
	// Edit replaces content and image and refreshes the timestamp. It never
	// creates a record: editing a missing id is a NotFound.
	Edit(id, content, image string) (*md.Post, *fe.FeedErr)
	// Delete removes the matching post. Delete must be idempotent.
	Delete(id string) *fe.FeedErr
	// ToggleLike flips likes[userID]. Applied twice it restores both the flag
	// and the derived like count.
	ToggleLike(id, userID string) (*md.Post, *fe.FeedErr)
	AddComment(id, text string, author *md.User) (*md.Post, *fe.FeedErr)
	Search(term, filter string) ([]md.Post, *fe.FeedErr)
}

// KVPostStore implements PostStore on top of the kv accessor.
type KVPostStore struct {
	KV kv.Store
}

func (s *KVPostStore) load() ([]md.Post, *fe.FeedErr) {
	posts := []md.Post{}
	if _, err := s.KV.Get(cst.KeyPosts, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *KVPostStore) save(posts []md.Post) *fe.FeedErr {
	return s.KV.Set(cst.KeyPosts, posts)
}

// derive normalizes a stored post for callers: missing maps become empty and
// the like count is recomputed from the authoritative likes map rather than
// trusted as stored.
func derive(p md.Post) md.Post {
	if p.Likes == nil {
		p.Likes = map[string]bool{}
	}
	if p.Comments == nil {
		p.Comments = []md.Comment{}
	}
	p.LikeCount = p.CountLikes()
	return p
}

func (s *KVPostStore) List() ([]md.Post, *fe.FeedErr) {
	posts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i] = derive(posts[i])
	}
	// creation already keeps the array newest-first, but an edit refreshes a
	// post's timestamp in place, so the explicit sort is what restores order
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt().After(posts[j].CreatedAt())
	})
	return posts, nil
}

func (s *KVPostStore) Get(id string) (*md.Post, *fe.FeedErr) {
	posts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID == id {
			p := derive(posts[i])
			return &p, nil
		}
	}
	return nil, fe.ErrNotFound("post not found")
}

func (s *KVPostStore) Create(content, image string, author md.Author) (*md.Post, *fe.FeedErr) {
	clog := logging.WithFuncName().WithField("authorID", author.ID)
	content = strings.TrimSpace(content)
	if content == "" && image == "" {
		return nil, fe.ErrBadInput("post needs some text or an image")
	}
	posts, err := s.load()
	if err != nil {
		return nil, err
	}
	p := md.Post{
		ID:        ksuid.New().String(),
		Content:   content,
		Image:     image,
		Timestamp: time.Now().Format(time.RFC3339),
		Author:    author,
		Likes:     map[string]bool{},
		Comments:  []md.Comment{},
	}
	posts = append([]md.Post{p}, posts...)
	if err := s.save(posts); err != nil {
		clog.WithError(err).Error("error saving post collection")
		return nil, err
	}
	return &p, nil
}

func (s *KVPostStore) Edit(id, content, image string) (*md.Post, *fe.FeedErr) {
	clog := log.WithField("postID", id)
	content = strings.TrimSpace(content)
	if content == "" && image == "" {
		return nil, fe.ErrBadInput("post needs some text or an image")
	}
	posts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID != id {
			continue
		}
		posts[i].Content = content
		posts[i].Image = image
		posts[i].Timestamp = time.Now().Format(time.RFC3339)
		if err := s.save(posts); err != nil {
			clog.WithError(err).Error("error saving post collection")
			return nil, err
		}
		p := derive(posts[i])
		return &p, nil
	}
	return nil, fe.ErrNotFound("post not found")
}

func (s *KVPostStore) Delete(id string) *fe.FeedErr {
	clog := log.WithField("postID", id)
	posts, err := s.load()
	if err != nil {
		return err
	}
	kept := posts[:0]
	for _, p := range posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if err := s.save(kept); err != nil {
		clog.WithError(err).Error("error saving post collection")
		return err
	}
	return nil
}

func (s *KVPostStore) ToggleLike(id, userID string) (*md.Post, *fe.FeedErr) {
	clog := log.WithFields(log.Fields{"postID": id, "userID": userID})
	posts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID != id {
			continue
		}
		if posts[i].Likes == nil {
			posts[i].Likes = map[string]bool{}
		}
		posts[i].Likes[userID] = !posts[i].Likes[userID]
		// the stored count is rewritten from the map rather than incremented,
		// so a toggle also repairs any drift left by older writers
		posts[i].LikeCount = posts[i].CountLikes()
		if err := s.save(posts); err != nil {
			clog.WithError(err).Error("error saving post collection")
			return nil, err
		}
		p := derive(posts[i])
		return &p, nil
	}
	return nil, fe.ErrNotFound("post not found")
}

func (s *KVPostStore) AddComment(id, text string, author *md.User) (*md.Post, *fe.FeedErr) {
	clog := log.WithField("postID", id)
	if strings.TrimSpace(text) == "" {
		return nil, fe.ErrBadInput("comment text must not be empty")
	}
	posts, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID != id {
			continue
		}
		c := md.Comment{
			ID:        ksuid.New().String(),
			Text:      text,
			Author:    author.Name,
			UserID:    author.ID,
			Timestamp: time.Now().Format(time.RFC3339),
		}
		posts[i].Comments = append(posts[i].Comments, c)
		if err := s.save(posts); err != nil {
			clog.WithError(err).Error("error saving post collection")
			return nil, err
		}
		p := derive(posts[i])
		return &p, nil
	}
	return nil, fe.ErrNotFound("post not found")
}

func (s *KVPostStore) Search(term, filter string) ([]md.Post, *fe.FeedErr) {
	posts, err := s.List()
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	matched := []md.Post{}
	for _, p := range posts {
		if filter == FilterText && p.Image != "" {
			continue
		}
		if filter == FilterImage && p.Image == "" {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Content), term) &&
			!strings.Contains(strings.ToLower(p.Author.Name), term) {
			continue
		}
		matched = append(matched, p)
	}
	return matched, nil
}
