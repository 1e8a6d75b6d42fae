package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/repositories"
	"github.com/iseelabs/isee/internal/services"
)

func ListVideos(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		q := repositories.VideoListQuery{
			Search: c.Query("search"),
			Page:   page,
			Limit:  limit,
		}
		result, err := videoService.ListVideos(c.Request.Context(), q)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", result)
	}
}

func GetVideo(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		video, err := videoService.GetVideo(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", video)
	}
}

// WatchVideo counts a view and returns the video metadata.
func WatchVideo(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		video, err := videoService.WatchVideo(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", video)
	}
}

func UpdateVideo(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req services.UpdateVideoRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.InvalidParamsCode, err.Error())
			return
		}
		video, err := videoService.UpdateVideo(c.Request.Context(), principal, id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Video updated", video)
	}
}

func DeleteVideo(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := videoService.DeleteVideo(c.Request.Context(), principal, id); err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Video deleted", nil)
	}
}

// ToggleVideoHidden flips the owner's visibility switch.
func ToggleVideoHidden(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		video, err := videoService.ToggleHidden(c.Request.Context(), principal, id)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Video visibility updated", video)
	}
}

// ToggleVideoBlocked is the moderation endpoint, admin only.
func ToggleVideoBlocked(videoService services.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		video, err := videoService.ToggleBlocked(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Video moderation updated", video)
	}
}
