package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	mw "verdant.io/feed/common/middleware"
)

// set up routes
func (s *feedServer) SetupMux() {
	r := httprouter.New()
	guard := mw.SessionGuard(s.authed, s.onAuthFail)
	open := func(h httprouter.Handle) httprouter.Handle {
		return mw.Chain(h, mw.PanicRecoverer())
	}
	guarded := func(h httprouter.Handle) httprouter.Handle {
		return mw.Chain(h, guard, mw.PanicRecoverer())
	}

	// auth
	r.POST("/register", open(s.HandleAuthRegister()))
	r.POST("/login", open(s.HandleAuthLogin()))
	r.POST("/logout", guarded(s.HandleAuthLogout()))
	r.GET("/profile", guarded(s.HandleAuthGetProfile()))
	r.PUT("/profile", guarded(s.HandleAuthUpdateProfile()))
	r.GET("/users", guarded(s.HandleAuthListUsers()))
	// feed
	r.GET("/posts", guarded(s.HandleTaskListPosts()))
	r.POST("/posts", guarded(s.HandleTaskCreatePost()))
	r.GET("/posts/:id", guarded(s.HandleTaskGetPost()))
	r.PUT("/posts/:id", guarded(s.HandleTaskEditPost()))
	r.DELETE("/posts/:id", guarded(s.HandleTaskDeletePost()))
	r.POST("/posts/:id/like", guarded(s.HandleTaskToggleLike()))
	r.POST("/posts/:id/bookmark", guarded(s.HandleTaskToggleBookmark()))
	r.POST("/posts/:id/comments", guarded(s.HandleTaskAddComment()))
	r.GET("/bookmarks", guarded(s.HandleTaskListBookmarks()))
	// settings
	r.GET("/settings", guarded(s.HandleTaskGetSettings()))
	r.PUT("/settings", guarded(s.HandleTaskSaveSettings()))
	// reels
	r.GET("/reels", guarded(s.HandleTaskListReels()))

	// catch-all for unknown routes
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respJSON(w, http.StatusNotFound, errBody("page not found"))
	})

	s.Router = r
}
