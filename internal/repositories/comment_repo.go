package repositories

import (
	"context"
	"errors"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint64) (*models.Comment, error)
	ListComments(ctx context.Context) ([]models.Comment, error)
	ListCommentsByVideo(ctx context.Context, videoID uint64) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id uint64) error
	DeleteCommentsByUser(ctx context.Context, userID uint64) error
}

type commentRepository struct {
	db *gorm.DB
}

var _ CommentRepository = (*commentRepository)(nil)

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		logger.Error("Error creating comment", zap.Uint64("videoID", comment.VideoID), zap.Error(err))
		return err
	}
	return nil
}

func (r *commentRepository) GetCommentByID(ctx context.Context, id uint64) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		logger.Error("Error getting comment by ID", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListComments(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&comments).Error; err != nil {
		logger.Error("Error listing comments", zap.Error(err))
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) ListCommentsByVideo(ctx context.Context, videoID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Where("video_id = ?", videoID).
		Order("created_at DESC").Find(&comments).Error
	if err != nil {
		logger.Error("Error listing comments by video", zap.Uint64("videoID", videoID), zap.Error(err))
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) DeleteComment(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		logger.Error("Error deleting comment", zap.Uint64("id", id), zap.Error(res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepository) DeleteCommentsByUser(ctx context.Context, userID uint64) error {
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Comment{}).Error
	if err != nil {
		logger.Error("Error deleting comments by user", zap.Uint64("userID", userID), zap.Error(err))
		return err
	}
	return nil
}
