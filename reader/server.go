package main

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"verdant.io/feed/common/logging"
	rt "verdant.io/feed/common/retry"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	"verdant.io/feed/reels"
	st "verdant.io/feed/stores"
)

const defaultReelsURL = "https://dharmub376.github.io/jsons/reels.json"

// reader handles read traffic of the feed application. It opens the store
// read-only; the store directory is still exclusively locked while the main
// server runs, so the reader serves when the writer is down and retries the
// open during handover.
type reader struct {
	Router *gin.Engine
	Posts  st.PostStore
	Reels  *reels.Client
}

func serve() error {
	viper.AutomaticEnv()
	logging.SetupLog("feed-reader", viper.GetBool(cst.EnvVerbose))
	store, err := setupStore()
	if err != nil {
		return err
	}
	defer store.Close()

	r := setup(store)
	addr := viper.GetString(cst.EnvReaderAddr)
	if addr == "" {
		addr = ":8081"
	}
	log.WithField("addr", addr).Info("feed reader is starting up")
	return r.Router.Run(addr)
}

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
		bs, err = kv.OpenBadgerReadOnly(dir)
		return err
	}
	if err := rt.Retry(openFn, retryOpts...); err != nil {
		return nil, fe.ErrServiceFailure("failed opening local store read-only").WithCause(err)
	}
	return bs, nil
}

func setup(store kv.Store) *reader {
	reelsURL := viper.GetString(cst.EnvReelsURL)
	if reelsURL == "" {
		reelsURL = defaultReelsURL
	}
	reqTimeout := viper.GetDuration(cst.EnvReelsTimeout)
	if reqTimeout == 0 {
		reqTimeout = 10 * time.Second
	}
	r := &reader{
		Posts: &st.KVPostStore{KV: store},
		Reels: reels.NewClient(&reels.Config{
			URL:            reelsURL,
			RequestTimeout: reqTimeout,
			CacheTTL:       viper.GetDuration(cst.EnvReelsCacheTTL),
			CacheSize:      viper.GetInt(cst.EnvReelsCacheSize),
		}),
	}
	r.SetupRoutes()
	return r
}

func (r *reader) SetupRoutes() {
	rt := gin.Default()

	rt.GET("/posts", r.HandleTaskListPosts)
	rt.GET("/posts/:pid", r.HandleTaskGetPost)
	rt.GET("/reels", r.HandleTaskListReels)
	r.Router = rt
}
