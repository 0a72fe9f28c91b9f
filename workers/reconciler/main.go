// Package reconciler vends a long-running worker to repair drifted feed data:
// stored like counts that disagree with their like maps, and legacy per-post
// bookmark maps that predate the per-user bookmark index.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluele/gcache"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"verdant.io/feed/common/logging"
	rt "verdant.io/feed/common/retry"
	cst "verdant.io/feed/constants"
	fe "verdant.io/feed/errors"
	"verdant.io/feed/kv"
	md "verdant.io/feed/models"
)

func main() {
	if err := runReconciler(); err != nil {
		log.WithError(err).Fatal("error running reconciler")
	}
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
		bs, err = kv.OpenBadger(dir)
		return err
	}
	if err := rt.Retry(openFn, retryOpts...); err != nil {
		return nil, fe.ErrServiceFailure("failed initializing local store").WithCause(err)
	}
	return bs, nil
}

type reconciler struct {
	KV kv.Store
	// doneCache keys posts already reconciled in recent sweeps, by id and
	// timestamp, so unchanged posts are not rewritten every sweep
	doneCache gcache.Cache
}

func runReconciler() error {
	viper.AutomaticEnv()
	logging.SetupLog("feed-reconciler", viper.GetBool(cst.EnvVerbose))
	clog := logging.WithFuncName()
	store, err := setupStore()
	if err != nil {
		clog.WithError(err).Error("error setting up local store")
		return err
	}
	defer store.Close()
	cacheSize := viper.GetInt(cst.EnvReconcilerCacheSize)
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	r := &reconciler{KV: store, doneCache: gcache.New(cacheSize).LRU().Build()}
	return r.Run()
}

func (r *reconciler) Run() *fe.FeedErr {
	clog := logging.WithFuncName()
	freq := viper.GetDuration(cst.EnvReconcilerSweepFreq)
	if freq <= 0 {
		freq = time.Minute
	}
	sweepTkr := time.NewTicker(freq)
	// ensure the worker can be responsive to system signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
LoopRun:
	for {
		select {
		case <-sweepTkr.C:
			n, err := r.Sweep(10 * freq)
			if err != nil {
				clog.WithError(err).Error("error sweeping feed data")
				return err
			}
			clog.WithField("repaired", n).Debug("sweep complete")
		case <-sigChan:
			clog.Info("got termination signal from kernel. Stopping")
			break LoopRun
		}
	}
	return nil
}

// Sweep scans the post collection once and repairs every post whose stored
// state has drifted. It reports how many posts were rewritten.
func (r *reconciler) Sweep(doneTTL time.Duration) (int, *fe.FeedErr) {
	clog := logging.WithFuncName()
	posts := []md.Post{}
	if _, err := r.KV.Get(cst.KeyPosts, &posts); err != nil {
		clog.WithError(err).Error("error loading posts from store")
		return 0, err
	}
	repaired := 0
	for i := range posts {
		p := &posts[i]
		if done, err := r.doneCache.Get(p.ID); err == nil && done == p.Timestamp {
			continue
		}
		changed := false
		if want := p.CountLikes(); p.LikeCount != want {
			clog.WithFields(log.Fields{"postId": p.ID, "stored": p.LikeCount, "actual": want}).
				Info("repairing drifted like count")
			p.LikeCount = want
			changed = true
		}
		if len(p.Bookmarks) > 0 {
			if err := r.foldBookmarks(p); err != nil {
				return repaired, err
			}
			p.Bookmarks = nil
			changed = true
		}
		if changed {
			repaired++
		}
		// best-effort: a post we fail to key here is just re-checked next sweep
		if err := r.doneCache.SetWithExpire(p.ID, p.Timestamp, doneTTL); err != nil {
			clog.WithError(err).Errorf("error keying post id %s in local cache", p.ID)
		}
	}
	if repaired > 0 {
		if err := r.KV.Set(cst.KeyPosts, posts); err != nil {
			clog.WithError(err).Error("error saving repaired posts")
			return 0, err
		}
	}
	return repaired, nil
}

// foldBookmarks migrates a legacy per-post bookmark map into the per-user
// bookmark index, which is the single source of truth for saved posts.
func (r *reconciler) foldBookmarks(p *md.Post) *fe.FeedErr {
	clog := logging.WithFuncName().WithField("postId", p.ID)
	for uid, saved := range p.Bookmarks {
		if !saved {
			continue
		}
		index := map[string]bool{}
		if _, err := r.KV.Get(cst.BookmarksKey(uid), &index); err != nil {
			clog.WithError(err).Error("error loading bookmark index")
			return err
		}
		if index[p.ID] {
			continue
		}
		index[p.ID] = true
		if err := r.KV.Set(cst.BookmarksKey(uid), index); err != nil {
			clog.WithError(err).Error("error saving bookmark index")
			return err
		}
		clog.WithField("userId", uid).Info("folded legacy bookmark into index")
	}
	return nil
}
