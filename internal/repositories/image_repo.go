package repositories

import (
	"context"
	"errors"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ImageRepository interface {
	CreateImage(ctx context.Context, image *models.Image) error
	GetImageByID(ctx context.Context, id uint64) (*models.Image, error)
	// ImageFileExists reports whether the author already registered an
	// image under this client-supplied name.
	ImageFileExists(ctx context.Context, userID uint64, originalName string) (bool, error)
	ListImages(ctx context.Context) ([]models.Image, error)
	ListImagesByUser(ctx context.Context, userID uint64) ([]models.Image, error)
	DeleteImage(ctx context.Context, id uint64) error
	DeleteImagesByUser(ctx context.Context, userID uint64) ([]models.Image, error)
}

type imageRepository struct {
	db *gorm.DB
}

var _ ImageRepository = (*imageRepository)(nil)

func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) CreateImage(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		logger.Error("Error creating image", zap.String("fileName", image.FileName), zap.Error(err))
		return err
	}
	return nil
}

func (r *imageRepository) GetImageByID(ctx context.Context, id uint64) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		logger.Error("Error getting image by ID", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}
	return &image, nil
}

func (r *imageRepository) ImageFileExists(ctx context.Context, userID uint64, originalName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Image{}).
		Where("user_id = ? AND original_name = ?", userID, originalName).
		Count(&count).Error
	if err != nil {
		logger.Error("Error checking image file", zap.Uint64("userID", userID), zap.String("originalName", originalName), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

func (r *imageRepository) ListImages(ctx context.Context) ([]models.Image, error) {
	var images []models.Image
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&images).Error; err != nil {
		logger.Error("Error listing images", zap.Error(err))
		return nil, err
	}
	return images, nil
}

func (r *imageRepository) ListImagesByUser(ctx context.Context, userID uint64) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&images).Error
	if err != nil {
		logger.Error("Error listing images by user", zap.Uint64("userID", userID), zap.Error(err))
		return nil, err
	}
	return images, nil
}

func (r *imageRepository) DeleteImage(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&models.Image{}, id)
	if res.Error != nil {
		logger.Error("Error deleting image", zap.Uint64("id", id), zap.Error(res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *imageRepository) DeleteImagesByUser(ctx context.Context, userID uint64) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Find(&images).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Image{}).Error
	})
	if err != nil {
		logger.Error("Error deleting images by user", zap.Uint64("userID", userID), zap.Error(err))
		return nil, err
	}
	return images, nil
}
