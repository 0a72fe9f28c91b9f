package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"verdant.io/feed/common/logging"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	md "verdant.io/feed/models"
	st "verdant.io/feed/stores"
)

// defaultReqBodySizeMax bounds request bodies; post images travel inline as
// data URLs so the cap is generous.
const defaultReqBodySizeMax int64 = 10 << 20

// postView decorates a post with the session user's derived bookmark state,
// looked up against the bookmark index rather than stored on the post.
type postView struct {
	md.Post
	Bookmarked bool `json:"bookmarked"`
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func respJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("error encoding response body")
	}
}

func respErr(w http.ResponseWriter, err *fe.FeedErr) {
	respJSON(w, err.StatusCode(), errBody(err.Error()))
}

// sanitize strips the plaintext password before a user record leaves the
// data layer.
func sanitize(u *md.User) md.User {
	c := *u
	c.Password = ""
	return c
}

func maxReqBodySize() int64 {
	if v := viper.GetInt64(cst.EnvReqBodySizeMax); v > 0 {
		return v
	}
	return defaultReqBodySizeMax
}

// decodeBody parses the JSON request body into v, bounding its size.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) *fe.FeedErr {
	r.Body = http.MaxBytesReader(w, r.Body, maxReqBodySize())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fe.ErrBadInput("error parsing request body").WithCause(err)
	}
	return nil
}

// authed is the session guard check. It only runs once hydration has
// settled; the cookie must agree with the hydrated session user.
func (s *feedServer) authed(r *http.Request) bool {
	if !s.Session.Ready() {
		return false
	}
	u := s.Session.Current()
	if u.Anonymous() {
		return false
	}
	sess, err := s.Cookies.Get(r, cst.SessionCookieName)
	if err != nil {
		return false
	}
	uid, _ := sess.Values["userId"].(string)
	return uid == u.ID
}

func (s *feedServer) onAuthFail(w http.ResponseWriter, r *http.Request) {
	if !s.Session.Ready() {
		// never make an auth decision before hydration settles
		respJSON(w, http.StatusServiceUnavailable, errBody("session state still loading"))
		return
	}
	body := errBody("login required")
	body["redirect"] = "/login"
	respJSON(w, http.StatusUnauthorized, body)
}

// establishSession installs u as session user and writes the session cookie.
func (s *feedServer) establishSession(w http.ResponseWriter, r *http.Request, u *md.User) *fe.FeedErr {
	if err := s.Session.Login(u); err != nil {
		return err
	}
	sess, err := s.Cookies.Get(r, cst.SessionCookieName)
	if err != nil {
		return fe.ErrServiceFailure("error reading session cookie").WithCause(err)
	}
	sess.Values["userId"] = u.ID
	if err := s.Cookies.Save(r, w, sess); err != nil {
		return fe.ErrServiceFailure("error writing session cookie").WithCause(err)
	}
	return nil
}

func (s *feedServer) HandleAuthRegister() httprouter.Handle {
	clog := logging.WithFuncName()
	type form struct {
		Name           string `json:"name"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		ProfilePicture string `json:"profilePicture"`
	}
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var f form
		if err := decodeBody(w, r, &f); err != nil {
			respErr(w, err)
			return
		}
		u, err := s.Users.Register(f.Name, f.Email, f.Password, f.ProfilePicture)
		if err != nil {
			// duplicate email: no record appended, no session established
			clog.WithError(err).WithField("email", f.Email).Info("registration rejected")
			respErr(w, err)
			return
		}
		if err := s.establishSession(w, r, u); err != nil {
			clog.WithError(err).Error("error establishing session after registration")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusCreated, sanitize(u))
	}
}

func (s *feedServer) HandleAuthLogin() httprouter.Handle {
	clog := logging.WithFuncName()
	type form struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var f form
		if err := decodeBody(w, r, &f); err != nil {
			respErr(w, err)
			return
		}
		u, err := s.Users.Authenticate(f.Email, f.Password)
		if err != nil {
			clog.WithField("email", f.Email).Info("login rejected")
			respErr(w, err)
			return
		}
		if err := s.establishSession(w, r, u); err != nil {
			clog.WithError(err).Error("error establishing session after login")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, sanitize(u))
	}
}

func (s *feedServer) HandleAuthLogout() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := s.Session.Logout(); err != nil {
			clog.WithError(err).Error("error clearing session")
			respErr(w, err)
			return
		}
		if sess, err := s.Cookies.Get(r, cst.SessionCookieName); err == nil {
			sess.Options.MaxAge = -1
			if err := s.Cookies.Save(r, w, sess); err != nil {
				clog.WithError(err).Error("error expiring session cookie")
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *feedServer) HandleAuthGetProfile() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		respJSON(w, http.StatusOK, sanitize(s.Session.Current()))
	}
}

func (s *feedServer) HandleAuthUpdateProfile() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var patch st.ProfilePatch
		if err := decodeBody(w, r, &patch); err != nil {
			respErr(w, err)
			return
		}
		u := s.Session.Current()
		updated, err := s.Users.Update(u.ID, patch)
		if err != nil {
			clog.WithError(err).WithField("userID", u.ID).Error("error updating profile")
			respErr(w, err)
			return
		}
		if err := s.Session.Refresh(updated); err != nil {
			clog.WithError(err).Error("error refreshing session user")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, sanitize(updated))
	}
}

func (s *feedServer) HandleAuthListUsers() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		users, err := s.Users.List()
		if err != nil {
			clog.WithError(err).Error("error listing users")
			respErr(w, err)
			return
		}
		// the profile page lists everyone but the session user
		cur := s.Session.Current()
		others := []md.User{}
		for i := range users {
			if users[i].ID != cur.ID {
				others = append(others, sanitize(&users[i]))
			}
		}
		respJSON(w, http.StatusOK, others)
	}
}

// views decorates posts with the session user's bookmark state.
func (s *feedServer) views(userID string, posts []md.Post) ([]postView, *fe.FeedErr) {
	index, err := s.Bookmarks.List(userID)
	if err != nil {
		return nil, err
	}
	vs := make([]postView, len(posts))
	for i, p := range posts {
		vs[i] = postView{Post: p, Bookmarked: index[p.ID]}
	}
	return vs, nil
}

func (s *feedServer) HandleTaskListPosts() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		q := r.URL.Query()
		posts, err := s.Posts.Search(q.Get("q"), q.Get("filter"))
		if err != nil {
			clog.WithError(err).Error("error listing posts")
			respErr(w, err)
			return
		}
		vs, err := s.views(s.Session.Current().ID, posts)
		if err != nil {
			clog.WithError(err).Error("error deriving bookmark state")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, vs)
	}
}

func (s *feedServer) HandleTaskGetPost() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		post, err := s.Posts.Get(p.ByName("id"))
		if err != nil {
			respErr(w, err)
			return
		}
		cur := s.Session.Current()
		bookmarked, err := s.Bookmarks.IsBookmarked(cur.ID, post.ID)
		if err != nil {
			clog.WithError(err).Error("error deriving bookmark state")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, postView{Post: *post, Bookmarked: bookmarked})
	}
}

func (s *feedServer) HandleTaskCreatePost() httprouter.Handle {
	clog := logging.WithFuncName()
	type form struct {
		Content string `json:"content"`
		Image   string `json:"image"`
	}
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var f form
		if err := decodeBody(w, r, &f); err != nil {
			respErr(w, err)
			return
		}
		u := s.Session.Current()
		post, err := s.Posts.Create(f.Content, f.Image, u.AsAuthor())
		if err != nil {
			clog.WithError(err).Info("post rejected")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusCreated, postView{Post: *post})
	}
}

func (s *feedServer) HandleTaskEditPost() httprouter.Handle {
	clog := logging.WithFuncName()
	type form struct {
		Content string `json:"content"`
		Image   string `json:"image"`
	}
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var f form
		if err := decodeBody(w, r, &f); err != nil {
			respErr(w, err)
			return
		}
		post, err := s.Posts.Edit(p.ByName("id"), f.Content, f.Image)
		if err != nil {
			clog.WithError(err).WithField("postID", p.ByName("id")).Info("edit rejected")
			respErr(w, err)
			return
		}
		cur := s.Session.Current()
		bookmarked, err := s.Bookmarks.IsBookmarked(cur.ID, post.ID)
		if err != nil {
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, postView{Post: *post, Bookmarked: bookmarked})
	}
}

func (s *feedServer) HandleTaskDeletePost() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		// intent confirmation is a UI concern; deletion here is unconditional
		if err := s.Posts.Delete(p.ByName("id")); err != nil {
			clog.WithError(err).WithField("postID", p.ByName("id")).Error("error deleting post")
			respErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *feedServer) HandleTaskToggleLike() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		u := s.Session.Current()
		post, err := s.Posts.ToggleLike(p.ByName("id"), u.ID)
		if err != nil {
			clog.WithError(err).WithField("postID", p.ByName("id")).Info("like toggle rejected")
			respErr(w, err)
			return
		}
		bookmarked, err := s.Bookmarks.IsBookmarked(u.ID, post.ID)
		if err != nil {
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, postView{Post: *post, Bookmarked: bookmarked})
	}
}

func (s *feedServer) HandleTaskToggleBookmark() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		u := s.Session.Current()
		bookmarked, err := s.Bookmarks.Toggle(u.ID, p.ByName("id"))
		if err != nil {
			clog.WithError(err).WithField("postID", p.ByName("id")).Error("error toggling bookmark")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
	}
}

func (s *feedServer) HandleTaskAddComment() httprouter.Handle {
	clog := logging.WithFuncName()
	type form struct {
		Text string `json:"text"`
	}
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var f form
		if err := decodeBody(w, r, &f); err != nil {
			respErr(w, err)
			return
		}
		u := s.Session.Current()
		post, err := s.Posts.AddComment(p.ByName("id"), f.Text, u)
		if err != nil {
			clog.WithError(err).WithField("postID", p.ByName("id")).Info("comment rejected")
			respErr(w, err)
			return
		}
		bookmarked, err := s.Bookmarks.IsBookmarked(u.ID, post.ID)
		if err != nil {
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, postView{Post: *post, Bookmarked: bookmarked})
	}
}

func (s *feedServer) HandleTaskListBookmarks() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		u := s.Session.Current()
		posts, err := s.Bookmarks.BookmarkedPosts(u.ID)
		if err != nil {
			clog.WithError(err).Error("error listing bookmarked posts")
			respErr(w, err)
			return
		}
		vs := make([]postView, len(posts))
		for i, p := range posts {
			vs[i] = postView{Post: p, Bookmarked: true}
		}
		respJSON(w, http.StatusOK, vs)
	}
}

func (s *feedServer) HandleTaskGetSettings() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		settings, err := s.Settings.Load()
		if err != nil {
			clog.WithError(err).Error("error loading settings")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, settings)
	}
}

func (s *feedServer) HandleTaskSaveSettings() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		settings := md.DefaultSettings()
		if err := decodeBody(w, r, &settings); err != nil {
			respErr(w, err)
			return
		}
		if err := s.Settings.Save(settings); err != nil {
			clog.WithError(err).Error("error saving settings")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, settings)
	}
}

func (s *feedServer) HandleTaskListReels() httprouter.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		rs, err := s.Reels.Fetch(r.Context())
		if err != nil {
			// surfaced as a retry-prompting error view, no automatic retry
			clog.WithError(err).Error("error fetching reel media list")
			respErr(w, err)
			return
		}
		respJSON(w, http.StatusOK, rs)
	}
}
