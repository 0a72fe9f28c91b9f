package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"verdant.io/feed/common/logging"
	rt "verdant.io/feed/common/retry"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	"verdant.io/feed/reels"
	sn "verdant.io/feed/session"
	st "verdant.io/feed/stores"
)

// defaultReelsURL is the static media list the reels view consumes.
const defaultReelsURL = "https://dharmub376.github.io/jsons/reels.json"

// feedServer serves the application's full surface: auth, feed CRUD,
// bookmarks, settings and the reels media list.
type feedServer struct {
	Router    *httprouter.Router
	Users     st.UserStore
	Posts     st.PostStore
	Bookmarks st.BookmarkStore
	Settings  st.SettingsStore
	Session   *sn.Manager
	Cookies   sessions.Store
	Reels     *reels.Client
}

func (s *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// start up application server and serve incoming requests
func serve() error {
	// read configuration from env vars
	viper.AutomaticEnv()
	logging.SetupLog("feed-server", viper.GetBool(cst.EnvVerbose))
	store, err := setupStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svr, err := newFeedServer(store)
	if err != nil {
		return err
	}

	host, port := viper.GetString(cst.EnvAppHost), viper.GetString(cst.EnvAppPort)
	if port == "" {
		port = "8080"
	}
	log.WithFields(log.Fields{
		"host": host,
		"port": port,
	}).Info("feed server is starting up")
	addr := fmt.Sprintf("%s:%s", host, port)
	return http.ListenAndServe(addr, svr)
}

// setupStore opens the local store, retrying while a terminating sibling
// process may still hold the directory lock.
func setupStore() (kv.Store, error) {
	dir := viper.GetString(cst.EnvDataDir)
	if dir == "" {
		dir = "data"
	}
	retryOpts := []rt.RetryOption{
		rt.WithTimeout(3 * time.Second),
		rt.WithBaseDelay(100 * time.Millisecond),
		rt.WithExp(2.0),
		rt.WithRetryOn(rt.IsDepOffline),
	}
	var bs *kv.BadgerStore
	openFn := func() error {
		var err error
		bs, err = kv.OpenBadger(dir)
		return err
	}
	if err := rt.Retry(openFn, retryOpts...); err != nil {
		return nil, fe.ErrServiceFailure("failed initializing local store").WithCause(err)
	}
	return bs, nil
}

func newFeedServer(store kv.Store) (*feedServer, error) {
	posts := &st.KVPostStore{KV: store}
	mgr := sn.NewManager(store)
	// hydrate before taking traffic so guarded routes never see an unsettled session
	if err := mgr.Hydrate(); err != nil {
		return nil, err
	}
	sessionKey := viper.GetString(cst.EnvSessionKey)
	if sessionKey == "" {
		// local demo fallback, override in any shared deployment
		sessionKey = "feed-local-dev-session-key"
	}
	reelsURL := viper.GetString(cst.EnvReelsURL)
	if reelsURL == "" {
		reelsURL = defaultReelsURL
	}
	reqTimeout := viper.GetDuration(cst.EnvReelsTimeout)
	if reqTimeout == 0 {
		reqTimeout = 10 * time.Second
	}
	svr := &feedServer{
		Users:     &st.KVUserStore{KV: store},
		Posts:     posts,
		Bookmarks: &st.KVBookmarkStore{KV: store, Posts: posts},
		Settings:  &st.KVSettingsStore{KV: store},
		Session:   mgr,
		Cookies:   sn.NewKVStore(store, []byte(sessionKey)),
		Reels: reels.NewClient(&reels.Config{
			URL:            reelsURL,
			RequestTimeout: reqTimeout,
			CacheTTL:       viper.GetDuration(cst.EnvReelsCacheTTL),
			CacheSize:      viper.GetInt(cst.EnvReelsCacheSize),
		}),
	}
	svr.SetupMux()
	return svr, nil
}
