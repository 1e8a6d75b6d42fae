package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/cache"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/mq"
	"github.com/iseelabs/isee/internal/pkg/mq/worker"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/repositories"
	"github.com/iseelabs/isee/internal/services/ingest"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UpdateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type VideoListResult struct {
	Videos []models.Video `json:"videos"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

type VideoService interface {
	// ingest.RecordStore is the pipeline's view of this service: the
	// duplicate-title probe before the transfer and the commit after it.
	ingest.RecordStore

	ListVideos(ctx context.Context, q repositories.VideoListQuery) (*VideoListResult, error)
	GetVideo(ctx context.Context, id uint64) (*models.Video, error)
	// WatchVideo records a view and returns the video, visible ones only.
	WatchVideo(ctx context.Context, id uint64) (*models.Video, error)
	UpdateVideo(ctx context.Context, actor utils.Principal, id uint64, req *UpdateVideoRequest) (*models.Video, error)
	DeleteVideo(ctx context.Context, actor utils.Principal, id uint64) error
	// ToggleHidden flips the owner's switch that pulls a video from
	// public listings.
	ToggleHidden(ctx context.Context, actor utils.Principal, id uint64) (*models.Video, error)
	// ToggleBlocked flips the moderation switch, admin only.
	ToggleBlocked(ctx context.Context, id uint64) (*models.Video, error)
}

type videoService struct {
	videoRepo  repositories.VideoRepository
	search     repositories.VideoSearchIndex
	cache      cache.Cache
	mqClient   *mq.RabbitMQClient
	remoteRoot string
}

var _ VideoService = (*videoService)(nil)
var _ ingest.RecordStore = (*videoService)(nil)

func NewVideoService(
	videoRepo repositories.VideoRepository,
	search repositories.VideoSearchIndex,
	c cache.Cache,
	mqClient *mq.RabbitMQClient,
	remoteRoot string,
) VideoService {
	return &videoService{
		videoRepo:  videoRepo,
		search:     search,
		cache:      c,
		mqClient:   mqClient,
		remoteRoot: remoteRoot,
	}
}

func (s *videoService) VideoTitleExists(ctx context.Context, ownerID uint64, title string) (bool, error) {
	return s.videoRepo.VideoTitleExists(ctx, ownerID, title)
}

func (s *videoService) CommitVideo(ctx context.Context, video *models.Video) error {
	if err := s.videoRepo.CommitVideo(ctx, video); err != nil {
		// A concurrent upload can win the (user_id, title) slot between
		// the advisory check and this insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %q", xerr.ErrDuplicateTitle, video.Title)
		}
		return err
	}
	// Search indexing rides behind the commit. A failure here costs
	// discoverability, not correctness.
	if s.search != nil {
		if err := s.search.IndexVideo(ctx, video); err != nil {
			logger.Warn("Failed to index committed video", zap.Uint64("videoID", video.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *videoService) ListVideos(ctx context.Context, q repositories.VideoListQuery) (*VideoListResult, error) {
	if q.Search != "" && s.search != nil {
		result, err := s.searchVideos(ctx, q)
		if err == nil {
			return result, nil
		}
		logger.Warn("Search index unavailable, falling back to database", zap.Error(err))
	}

	videos, total, err := s.videoRepo.ListVisibleVideos(ctx, q)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list videos: %w", err))
	}
	return &VideoListResult{Videos: videos, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (s *videoService) searchVideos(ctx context.Context, q repositories.VideoListQuery) (*VideoListResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}
	ids, total, err := s.search.SearchVideos(ctx, q.Search, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	videos, err := s.videoRepo.GetVideosByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Hidden and blocked rows stay in the index until their next sync;
	// filter them out of the page rather than leak them.
	visible := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if v.Visible() {
			visible = append(visible, v)
		}
	}
	return &VideoListResult{Videos: visible, Total: total, Page: page, Limit: limit}, nil
}

func (s *videoService) GetVideo(ctx context.Context, id uint64) (*models.Video, error) {
	key := cache.VideoMetadataKey(id)
	var cached models.Video
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("Video cache read failed", zap.Uint64("videoID", id), zap.Error(err))
	}

	video, err := s.videoRepo.GetVideoByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.VideoNotFoundCode, xerr.ErrVideoNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get video: %w", err))
	}
	if err := s.cache.Set(ctx, key, video, cache.VideoMetadataTTL); err != nil {
		logger.Warn("Video cache write failed", zap.Uint64("videoID", id), zap.Error(err))
	}
	return video, nil
}

func (s *videoService) WatchVideo(ctx context.Context, id uint64) (*models.Video, error) {
	video, err := s.videoRepo.GetVideoByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.VideoNotFoundCode, xerr.ErrVideoNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get video: %w", err))
	}
	if !video.Visible() {
		return nil, xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}
	if err := s.videoRepo.IncrementViews(ctx, id); err != nil {
		logger.Warn("Failed to record view", zap.Uint64("videoID", id), zap.Error(err))
	} else {
		video.Views++
	}
	s.invalidate(ctx, id)
	return video, nil
}

func (s *videoService) UpdateVideo(ctx context.Context, actor utils.Principal, id uint64, req *UpdateVideoRequest) (*models.Video, error) {
	video, err := s.authorizeOwner(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" && req.Title != video.Title {
		exists, err := s.videoRepo.VideoTitleExists(ctx, video.UserID, req.Title)
		if err != nil {
			return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("check title: %w", err))
		}
		if exists {
			return nil, xerr.NewCodeError(xerr.DuplicateTitleCode, xerr.ErrDuplicateTitle)
		}
		video.Title = req.Title
	}
	if req.Description != "" {
		video.Description = req.Description
	}

	if err := s.videoRepo.UpdateVideo(ctx, video); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, xerr.NewCodeError(xerr.DuplicateTitleCode, xerr.ErrDuplicateTitle)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("update video: %w", err))
	}
	s.invalidate(ctx, id)
	if s.search != nil {
		if err := s.search.IndexVideo(ctx, video); err != nil {
			logger.Warn("Failed to reindex video", zap.Uint64("videoID", id), zap.Error(err))
		}
	}
	return video, nil
}

func (s *videoService) DeleteVideo(ctx context.Context, actor utils.Principal, id uint64) error {
	video, err := s.authorizeOwner(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.videoRepo.DeleteVideo(ctx, id); err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete video: %w", err))
	}

	worker.EnqueueCleanup(s.mqClient, transfer.RemotePath(s.remoteRoot, video.FileName), "video deleted")
	s.invalidate(ctx, id)
	if s.search != nil {
		if err := s.search.RemoveVideo(ctx, id); err != nil {
			logger.Warn("Failed to remove video from search index", zap.Uint64("videoID", id), zap.Error(err))
		}
	}
	logger.Info("Video deleted", zap.Uint64("videoID", id), zap.Uint64("actorID", actor.UserID))
	return nil
}

func (s *videoService) ToggleHidden(ctx context.Context, actor utils.Principal, id uint64) (*models.Video, error) {
	video, err := s.authorizeOwner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	video.Hidden = !video.Hidden
	if err := s.videoRepo.UpdateVideo(ctx, video); err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("update video: %w", err))
	}
	s.invalidate(ctx, id)
	return video, nil
}

func (s *videoService) ToggleBlocked(ctx context.Context, id uint64) (*models.Video, error) {
	video, err := s.videoRepo.GetVideoByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.VideoNotFoundCode, xerr.ErrVideoNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get video: %w", err))
	}
	video.Blocked = !video.Blocked
	if err := s.videoRepo.UpdateVideo(ctx, video); err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("update video: %w", err))
	}
	s.invalidate(ctx, id)
	logger.Info("Video moderation flag changed", zap.Uint64("videoID", id), zap.Bool("blocked", video.Blocked))
	return video, nil
}

// authorizeOwner loads the video and rejects actors who neither own it nor
// hold the admin role.
func (s *videoService) authorizeOwner(ctx context.Context, actor utils.Principal, id uint64) (*models.Video, error) {
	video, err := s.videoRepo.GetVideoByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.VideoNotFoundCode, xerr.ErrVideoNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get video: %w", err))
	}
	if video.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}
	return video, nil
}

func (s *videoService) invalidate(ctx context.Context, id uint64) {
	if err := s.cache.Del(ctx, cache.VideoMetadataKey(id)); err != nil {
		logger.Warn("Video cache invalidation failed", zap.Uint64("videoID", id), zap.Error(err))
	}
}
