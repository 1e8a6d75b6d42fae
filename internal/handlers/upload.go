package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/mq"
	"github.com/iseelabs/isee/internal/pkg/mq/worker"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
	"github.com/iseelabs/isee/internal/services/ingest"
	"go.uber.org/zap"
)

// UploadVideo streams a multipart video upload through the ingestion
// pipeline. The request body is consumed part by part and the file part is
// piped to remote storage without buffering it in memory; the metadata
// record exists only if the transfer fully succeeded.
func UploadVideo(videoService services.VideoService, transfers transfer.Client, mqClient *mq.RabbitMQClient, cfg *config.Config, remoteRoot string) gin.HandlerFunc {
	validator := ingest.NewValidator(videoService, cfg.Upload.CategoryPrefix)

	return func(c *gin.Context) {
		principal, ok := utils.GetPrincipal(c)
		if !ok {
			return
		}

		mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
			xerr.Error(c, http.StatusBadRequest, xerr.MalformedBodyCode, xerr.ErrMalformedBody.Error())
			return
		}

		orphaned := func(remotePath, reason string) {
			worker.EnqueueCleanup(mqClient, remotePath, reason)
		}
		orch := ingest.NewOrchestrator(
			ingest.Owner{ID: principal.UserID, Username: principal.Username},
			validator,
			videoService,
			transfers,
			remoteRoot,
			orphaned,
		)

		sc := ingest.NewScanner(c.Request.Body, params["boundary"], cfg.Upload.MaxFieldBytes)
		video, err := orch.Run(c.Request.Context(), sc)
		if err != nil {
			logger.Warn("Video upload rejected",
				zap.Uint64("userID", principal.UserID),
				zap.String("state", orch.State().String()),
				zap.Error(err))
			respondError(c, err)
			return
		}

		logger.Info("Video uploaded",
			zap.Uint64("userID", principal.UserID),
			zap.Uint64("videoID", video.ID),
			zap.String("fileName", video.FileName))
		xerr.Success(c, http.StatusCreated, "Video uploaded", video)
	}
}
