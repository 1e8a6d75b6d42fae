package repositories

import (
	"context"
	"errors"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VideoListQuery narrows and pages video listings.
type VideoListQuery struct {
	Search string
	Page   int
	Limit  int
}

func (q VideoListQuery) offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * q.limit()
}

func (q VideoListQuery) limit() int {
	if q.Limit < 1 || q.Limit > 100 {
		return 20
	}
	return q.Limit
}

type VideoRepository interface {
	// VideoTitleExists reports whether the owner already published a video
	// under this title. Deleted videos free their title for reuse.
	VideoTitleExists(ctx context.Context, ownerID uint64, title string) (bool, error)
	// CommitVideo inserts the metadata record and links it to its owner in
	// one transaction. The unique (user_id, title) index makes a concurrent
	// duplicate insert fail here rather than slip through.
	CommitVideo(ctx context.Context, video *models.Video) error
	GetVideoByID(ctx context.Context, id uint64) (*models.Video, error)
	GetVideosByIDs(ctx context.Context, ids []uint64) ([]models.Video, error)
	ListVisibleVideos(ctx context.Context, q VideoListQuery) ([]models.Video, int64, error)
	ListVideosByUser(ctx context.Context, userID uint64) ([]models.Video, error)
	UpdateVideo(ctx context.Context, video *models.Video) error
	// DeleteVideo removes the record and its comments.
	DeleteVideo(ctx context.Context, id uint64) error
	// DeleteVideosByUser removes every video the user owns, with comments,
	// and returns the removed rows so the caller can reclaim remote files.
	DeleteVideosByUser(ctx context.Context, userID uint64) ([]models.Video, error)
	IncrementViews(ctx context.Context, id uint64) error
}

type videoRepository struct {
	db *gorm.DB
}

var _ VideoRepository = (*videoRepository)(nil)

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) VideoTitleExists(ctx context.Context, ownerID uint64, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Video{}).
		Where("user_id = ? AND title = ?", ownerID, title).
		Count(&count).Error
	if err != nil {
		logger.Error("Error checking video title", zap.Uint64("ownerID", ownerID), zap.String("title", title), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

func (r *videoRepository) CommitVideo(ctx context.Context, video *models.Video) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Select("id").First(&owner, video.UserID).Error; err != nil {
			return err
		}
		if err := tx.Create(video).Error; err != nil {
			logger.Error("Error committing video record", zap.Uint64("ownerID", video.UserID), zap.String("title", video.Title), zap.Error(err))
			return err
		}
		return nil
	})
}

func (r *videoRepository) GetVideoByID(ctx context.Context, id uint64) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).Preload("Comments").Where("id = ?", id).First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		logger.Error("Error getting video by ID", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) GetVideosByIDs(ctx context.Context, ids []uint64) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var videos []models.Video
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&videos).Error; err != nil {
		logger.Error("Error getting videos by IDs", zap.Error(err))
		return nil, err
	}
	// Preserve the caller's ordering. Search relevance depends on it.
	byID := make(map[uint64]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	ordered := make([]models.Video, 0, len(videos))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

func (r *videoRepository) ListVisibleVideos(ctx context.Context, q VideoListQuery) ([]models.Video, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Video{}).
		Where("hidden = ? AND blocked = ?", false, false)
	if q.Search != "" {
		like := "%" + q.Search + "%"
		tx = tx.Where("title LIKE ? OR username LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		logger.Error("Error counting videos", zap.Error(err))
		return nil, 0, err
	}

	var videos []models.Video
	err := tx.Order("created_at DESC").
		Offset(q.offset()).Limit(q.limit()).
		Find(&videos).Error
	if err != nil {
		logger.Error("Error listing videos", zap.Error(err))
		return nil, 0, err
	}
	return videos, total, nil
}

func (r *videoRepository) ListVideosByUser(ctx context.Context, userID uint64) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&videos).Error
	if err != nil {
		logger.Error("Error listing videos by user", zap.Uint64("userID", userID), zap.Error(err))
		return nil, err
	}
	return videos, nil
}

func (r *videoRepository) UpdateVideo(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Save(video).Error; err != nil {
		logger.Error("Error updating video", zap.Uint64("id", video.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *videoRepository) DeleteVideo(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Video{}, id)
		if res.Error != nil {
			logger.Error("Error deleting video", zap.Uint64("id", id), zap.Error(res.Error))
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *videoRepository) DeleteVideosByUser(ctx context.Context, userID uint64) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Find(&videos).Error; err != nil {
			return err
		}
		if len(videos) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(videos))
		for _, v := range videos {
			ids = append(ids, v.ID)
		}
		if err := tx.Where("video_id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Video{}).Error
	})
	if err != nil {
		logger.Error("Error deleting videos by user", zap.Uint64("userID", userID), zap.Error(err))
		return nil, err
	}
	return videos, nil
}

func (r *videoRepository) IncrementViews(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Model(&models.Video{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		logger.Error("Error incrementing views", zap.Uint64("id", id), zap.Error(res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
