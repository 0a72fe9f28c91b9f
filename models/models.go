package models

import (
	"time"
)

/*
 Application layer data models. All of them serialize to the JSON documents the
 storage layer persists, so field tags are part of the stored format.
*/

// User models an individual service user. Passwords are kept in plaintext on
// purpose: this is a local single-user demo and auth hardening is out of scope.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Location       string `json:"location,omitempty"`
	Website        string `json:"website,omitempty"`
	JoinDate       string `json:"joinDate,omitempty"`
}

func (u *User) Anonymous() bool {
	return u == nil
}

// AsAuthor returns the denormalized author snapshot embedded into posts the
// user creates.
func (u *User) AsAuthor() Author {
	avatar := u.ProfilePicture
	if avatar == "" {
		avatar = "/default-avatar.png"
	}
	return Author{ID: u.ID, Name: u.Name, Avatar: avatar}
}

type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Post is a feed entry. Likes maps liker user id to a flag; LikeCount is
// derived from Likes on read and must not be trusted as stored.
type Post struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Image     string          `json:"image,omitempty"`
	Timestamp string          `json:"timestamp"`
	Author    Author          `json:"author"`
	Likes     map[string]bool `json:"likes"`
	// Bookmarks is the legacy per-post bookmark map written by older clients.
	// The per-user bookmark index is authoritative; the reconciler folds any
	// entries found here into the index and clears the map.
	Bookmarks map[string]bool `json:"bookmarks,omitempty"`
	Comments  []Comment       `json:"comments"`
	LikeCount int             `json:"likeCount"`
}

// CountLikes recomputes the like count from the authoritative Likes map.
func (p *Post) CountLikes() int {
	n := 0
	for _, liked := range p.Likes {
		if liked {
			n++
		}
	}
	return n
}

func (p *Post) LikedBy(userID string) bool {
	return p.Likes != nil && p.Likes[userID]
}

// CreatedAt parses the post's RFC3339 timestamp. A malformed timestamp yields
// the zero time, which sorts the post to the end of the feed.
func (p *Post) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Comment is an append-only child of a post. Author carries the commenter's
// display name; UserID carries their id.
type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

// Settings is the single user-preferences document.
type Settings struct {
	Theme              string `json:"theme"`
	Notifications      bool   `json:"notifications"`
	EmailNotifications bool   `json:"emailNotifications"`
	Language           string `json:"language"`
	AutoPlayVideos     bool   `json:"autoPlayVideos"`
	ShowOnlineStatus   bool   `json:"showOnlineStatus"`
	AccountPrivacy     string `json:"accountPrivacy"`
}

// DefaultSettings returns the preferences applied before the user ever saves.
func DefaultSettings() Settings {
	return Settings{
		Theme:              "light",
		Notifications:      true,
		EmailNotifications: true,
		Language:           "english",
		AutoPlayVideos:     false,
		ShowOnlineStatus:   true,
		AccountPrivacy:     "public",
	}
}

// Reel is a short-video feed item fetched from the remote media list. It is
// distinct from a Post and never persisted locally.
type Reel struct {
	ID        string     `json:"id"`
	Video     string     `json:"video"`
	Author    ReelAuthor `json:"author"`
	Likes     int        `json:"likes"`
	Comments  int        `json:"comments"`
	Caption   string     `json:"caption,omitempty"`
	Timestamp string     `json:"timestamp"`
}

type ReelAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
