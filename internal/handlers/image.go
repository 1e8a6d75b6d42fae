package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
)

// UploadImage accepts a single-file multipart upload and streams it to
// remote storage before the record is written.
func UploadImage(imageService services.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}

		reader, err := c.Request.MultipartReader()
		if err != nil {
			xerr.Error(c, http.StatusBadRequest, xerr.MalformedBodyCode, xerr.ErrMalformedBody.Error())
			return
		}

		for {
			part, err := reader.NextPart()
			if err != nil {
				// Body ended without a file part.
				xerr.Error(c, http.StatusBadRequest, xerr.MissingFieldCode, "no file part in request")
				return
			}
			if part.FileName() == "" {
				continue
			}
			image, err := imageService.UploadImage(
				c.Request.Context(),
				principal,
				part.FileName(),
				part.Header.Get("Content-Type"),
				part,
			)
			if err != nil {
				respondError(c, err)
				return
			}
			xerr.Success(c, http.StatusCreated, "Image uploaded", image)
			return
		}
	}
}

func GetImage(imageService services.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		image, err := imageService.GetImage(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", image)
	}
}

func ListImages(imageService services.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		images, err := imageService.ListImages(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", images)
	}
}

// MyImages lists the caller's own images.
func MyImages(imageService services.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		images, err := imageService.ListImagesByUser(c.Request.Context(), principal.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "OK", images)
	}
}

func DeleteImage(imageService services.ImageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := imageService.DeleteImage(c.Request.Context(), principal, id); err != nil {
			respondError(c, err)
			return
		}
		xerr.Success(c, http.StatusOK, "Image deleted", nil)
	}
}
