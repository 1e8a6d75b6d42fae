package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
)

// CreateComment posts a comment on the video named by the video_id query
// parameter.
func CreateComment(commentService services.CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		videoID, err := strconv.ParseUint(c.Query("video_id"), 10, 64)
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, "invalid video_id parameter")
			return
		}
		var req services.CreateCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		comment, err := commentService.CreateComment(c.Request.Context(), principal, videoID, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusCreated, "Comment created", comment)
	}
}

func ListComments(commentService services.CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		comments, err := commentService.ListComments(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", comments)
	}
}

func ListVideoComments(commentService services.CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		videoID, ok := pathID(c, "videoId")
		if !ok {
			return
		}
		comments, err := commentService.ListCommentsByVideo(c.Request.Context(), videoID)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", comments)
	}
}

func DeleteComment(commentService services.CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := commentService.DeleteComment(c.Request.Context(), principal, id); err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Comment deleted", nil)
	}
}
