package stores

import (
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	log "github.com/sirupsen/logrus"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

// ProfilePatch carries the profile fields a user may edit. Identity fields
// (id, email, profile picture, join date) are immutable through this path.
type ProfilePatch struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Location string `json:"location"`
	Website  string `json:"website"`
}

// UserStore vends operations to manage registered users. Users are never
// deleted.
type UserStore interface {
	// Register appends a new user. A duplicate email is rejected with an
	// Existed error and leaves the collection untouched; the caller must not
	// establish a session in that case.
	Register(name, email, passwd, profilePicture string) (*md.User, *fe.FeedErr)
	// Authenticate matches email and password against registered users.
	// Passwords are compared in plaintext, matching the stored format.
	Authenticate(email, passwd string) (*md.User, *fe.FeedErr)
	Get(id string) (*md.User, *fe.FeedErr)
	Update(id string, patch ProfilePatch) (*md.User, *fe.FeedErr)
	List() ([]md.User, *fe.FeedErr)
}

// KVUserStore implements UserStore on top of the kv accessor. The whole users
// collection lives as one JSON array; every mutation is read-whole,
// transform, write-whole.
type KVUserStore struct {
	KV kv.Store
}

func (s *KVUserStore) load() ([]md.User, *fe.FeedErr) {
	users := []md.User{}
	if _, err := s.KV.Get(cst.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *KVUserStore) Register(name, email, passwd, profilePicture string) (*md.User, *fe.FeedErr) {
	clog := log.WithField("email", email)
	if len(strings.TrimSpace(name)) < 2 {
		return nil, fe.ErrBadInput("name must be at least 2 characters")
	}
	if !strings.Contains(email, "@") {
		return nil, fe.ErrBadInput("invalid email address")
	}
	if len(passwd) < 6 {
		return nil, fe.ErrBadInput("password must be at least 6 characters")
	}
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			clog.Info("rejecting registration with email already in use")
			return nil, fe.ErrExisted("email already registered")
		}
	}
	u := md.User{
		ID:             ksuid.New().String(),
		Name:           strings.TrimSpace(name),
		Email:          email,
		Password:       passwd,
		ProfilePicture: profilePicture,
		JoinDate:       time.Now().Format(time.RFC3339),
	}
	users = append(users, u)
	if err := s.KV.Set(cst.KeyUsers, users); err != nil {
		clog.WithError(err).Error("error saving users collection")
		return nil, err
	}
	return &u, nil
}

func (s *KVUserStore) Authenticate(email, passwd string) (*md.User, *fe.FeedErr) {
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email && users[i].Password == passwd {
			u := users[i]
			return &u, nil
		}
	}
	return nil, fe.ErrNotFound("invalid email or password")
}

func (s *KVUserStore) Get(id string) (*md.User, *fe.FeedErr) {
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			u := users[i]
			return &u, nil
		}
	}
	return nil, fe.ErrNotFound("user not found")
}

func (s *KVUserStore) Update(id string, patch ProfilePatch) (*md.User, *fe.FeedErr) {
	clog := log.WithField("userID", id)
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID != id {
			continue
		}
		users[i].Name = patch.Name
		users[i].Bio = patch.Bio
		users[i].Location = patch.Location
		users[i].Website = patch.Website
		if err := s.KV.Set(cst.KeyUsers, users); err != nil {
			clog.WithError(err).Error("error saving users collection")
			return nil, err
		}
		u := users[i]
		return &u, nil
	}
	return nil, fe.ErrNotFound("user not found")
}

func (s *KVUserStore) List() ([]md.User, *fe.FeedErr) {
	return s.load()
}
