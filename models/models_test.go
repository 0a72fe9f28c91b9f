package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestModels_PostCountLikes(t *testing.T) {
	tcs := []struct {
		name     string
		post     Post
		expected int
	}{
		{
			name:     "NoLikesMap",
			post:     Post{},
			expected: 0,
		},
		{
			name:     "AllTruthy",
			post:     Post{Likes: map[string]bool{"u1": true, "u2": true}},
			expected: 2,
		},
		{
			name:     "FalseEntriesIgnored",
			post:     Post{Likes: map[string]bool{"u1": true, "u2": false}},
			expected: 1,
		},
		{
			name:     "StaleStoredCountIgnored",
			post:     Post{Likes: map[string]bool{"u1": true}, LikeCount: 42},
			expected: 1,
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, c.post.CountLikes(), "unexpected like count")
		})
	}
}

func TestModels_PostLikedBy(t *testing.T) {
	tcs := []struct {
		name     string
		post     Post
		userID   string
		expected bool
	}{
		{
			name:   "NilLikesMap",
			post:   Post{},
			userID: "u1",
		},
		{
			name:     "Liked",
			post:     Post{Likes: map[string]bool{"u1": true}},
			userID:   "u1",
			expected: true,
		},
		{
			name:   "UnlikedEntry",
			post:   Post{Likes: map[string]bool{"u1": false}},
			userID: "u1",
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, c.post.LikedBy(c.userID), "unexpected liked-by behavior")
		})
	}
}

func TestModels_PostCreatedAt(t *testing.T) {
	ts := time.Date(2024, 4, 1, 12, 30, 0, 0, time.UTC)
	tcs := []struct {
		name     string
		post     Post
		expected time.Time
	}{
		{
			name:     "ValidTimestamp",
			post:     Post{Timestamp: ts.Format(time.RFC3339)},
			expected: ts,
		},
		{
			name: "MalformedTimestamp",
			post: Post{Timestamp: "junk"},
		},
		{
			name: "EmptyTimestamp",
			post: Post{},
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.True(t, c.expected.Equal(c.post.CreatedAt()), "unexpected creation time")
		})
	}
}

func TestModels_UserAnonymous(t *testing.T) {
	tcs := []struct {
		user      *User
		anonymous bool
	}{
		{
			anonymous: true,
		},
		{
			user:      &User{ID: "johndoe"},
			anonymous: false,
		},
	}
	for _, c := range tcs {
		assert.Equal(t, c.anonymous, c.user.Anonymous(), "unexpected user anonymity")
	}
}

func TestModels_UserAsAuthor(t *testing.T) {
	tcs := []struct {
		name     string
		user     User
		expected Author
	}{
		{
			name:     "WithProfilePicture",
			user:     User{ID: "u1", Name: "Jo", ProfilePicture: "/pics/jo.png"},
			expected: Author{ID: "u1", Name: "Jo", Avatar: "/pics/jo.png"},
		},
		{
			name:     "FallsBackToDefaultAvatar",
			user:     User{ID: "u2", Name: "Sam"},
			expected: Author{ID: "u2", Name: "Sam", Avatar: "/default-avatar.png"},
		},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, c.user.AsAuthor(), "unexpected author snapshot")
		})
	}
}

func TestModels_DefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "light", s.Theme)
	assert.True(t, s.Notifications)
	assert.True(t, s.EmailNotifications)
	assert.Equal(t, "english", s.Language)
	assert.False(t, s.AutoPlayVideos)
	assert.True(t, s.ShowOnlineStatus)
	assert.Equal(t, "public", s.AccountPrivacy)
}
