package session

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/segmentio/ksuid"
	cst "verdant.io/feed/constants"
	"verdant.io/feed/kv"
)

// KVStore is a github.com/gorilla/sessions.Store backed by the same kv
// accessor the rest of the data layer uses. The cookie carries only the
// session id; session values live under session_<id> in storage.
type KVStore struct {
	KV      kv.Store
	Codecs  []securecookie.Codec
	Options *sessions.Options
}

func NewKVStore(store kv.Store, keyPairs ...[]byte) *KVStore {
	return &KVStore{
		KV:     store,
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   86400 * 30,
			HttpOnly: true,
		},
	}
}

// Get returns a cached session.
func (s *KVStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New creates and returns a new session, restoring values from storage when
// the request carries a decodable session cookie. New never returns a nil
// session, even on error.
func (s *KVStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true
	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &sess.ID, s.Codecs...); err != nil {
		// undecodable cookie is treated as no session
		return sess, nil
	}
	vals := map[string]string{}
	found, gerr := s.KV.Get(cst.SessionKey(sess.ID), &vals)
	if gerr != nil {
		return sess, gerr
	}
	if found {
		for k, v := range vals {
			sess.Values[k] = v
		}
		sess.IsNew = false
	}
	return sess, nil
}

// Save persists the session to storage and writes the session cookie. A
// session with MaxAge < 0 is deleted instead.
func (s *KVStore) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	if sess.Options != nil && sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.KV.Delete(cst.SessionKey(sess.ID)); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}
	if sess.ID == "" {
		sess.ID = ksuid.New().String()
	}
	vals := map[string]string{}
	for k, v := range sess.Values {
		ks, ok := k.(string)
		vs, ok2 := v.(string)
		if ok && ok2 {
			vals[ks] = vs
		}
	}
	if err := s.KV.Set(cst.SessionKey(sess.ID), vals); err != nil {
		return err
	}
	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}
