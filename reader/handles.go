package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"verdant.io/feed/common/logging"
)

func (r *reader) HandleTaskListPosts(ctx *gin.Context) {
	clog := logging.WithFuncName()
	posts, err := r.Posts.Search(ctx.Query("q"), ctx.Query("filter"))
	if err != nil {
		clog.WithError(err).Error("error listing posts")
		ctx.JSON(err.StatusCode(), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, posts)
}

func (r *reader) HandleTaskGetPost(ctx *gin.Context) {
	clog := logging.WithFuncName()
	p, err := r.Posts.Get(ctx.Param("pid"))
	if err != nil {
		clog.WithError(err).WithField("postId", ctx.Param("pid")).Error("error getting post")
		ctx.JSON(err.StatusCode(), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, p)
}

func (r *reader) HandleTaskListReels(ctx *gin.Context) {
	clog := logging.WithFuncName()
	rs, err := r.Reels.Fetch(ctx.Request.Context())
	if err != nil {
		clog.WithError(err).Error("error fetching reels")
		ctx.JSON(err.StatusCode(), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, rs)
}
