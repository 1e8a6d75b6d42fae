package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/mq"
	"github.com/iseelabs/isee/internal/pkg/mq/worker"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UpdateProfileRequest struct {
	Email          string `json:"email" binding:"omitempty,email"`
	Password       string `json:"password" binding:"omitempty,min=6"`
	ProfilePicture string `json:"profile_picture"`
}

type UserService interface {
	GetUser(ctx context.Context, id uint64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, actor utils.Principal, targetID uint64, req *UpdateProfileRequest) (*models.User, error)
	SetRole(ctx context.Context, targetID uint64, role string) (*models.User, error)
	// DeleteUser removes the account with its videos, comments and images.
	// The cascade is sequential rather than atomic; remote files are
	// reclaimed through the cleanup queue.
	DeleteUser(ctx context.Context, actor utils.Principal, targetID uint64) error
}

type userService struct {
	userRepo    repositories.UserRepository
	videoRepo   repositories.VideoRepository
	commentRepo repositories.CommentRepository
	imageRepo   repositories.ImageRepository
	search      repositories.VideoSearchIndex
	mqClient    *mq.RabbitMQClient
	remoteRoot  string
}

var _ UserService = (*userService)(nil)

func NewUserService(
	userRepo repositories.UserRepository,
	videoRepo repositories.VideoRepository,
	commentRepo repositories.CommentRepository,
	imageRepo repositories.ImageRepository,
	search repositories.VideoSearchIndex,
	mqClient *mq.RabbitMQClient,
	remoteRoot string,
) UserService {
	return &userService{
		userRepo:    userRepo,
		videoRepo:   videoRepo,
		commentRepo: commentRepo,
		imageRepo:   imageRepo,
		search:      search,
		mqClient:    mqClient,
		remoteRoot:  remoteRoot,
	}
}

func (s *userService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.UserNotFoundCode, xerr.ErrUserNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get user: %w", err))
	}
	return s.withMedia(ctx, user)
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.UserNotFoundCode, xerr.ErrUserNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get user: %w", err))
	}
	return s.withMedia(ctx, user)
}

// withMedia attaches the user's videos and images to the profile.
func (s *userService) withMedia(ctx context.Context, user *models.User) (*models.User, error) {
	videos, err := s.videoRepo.ListVideosByUser(ctx, user.ID)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list user videos: %w", err))
	}
	images, err := s.imageRepo.ListImagesByUser(ctx, user.ID)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list user images: %w", err))
	}
	user.Videos = videos
	user.Images = images
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list users: %w", err))
	}
	return users, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor utils.Principal, targetID uint64, req *UpdateProfileRequest) (*models.User, error) {
	if actor.UserID != targetID && !actor.IsAdmin() {
		return nil, xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}
	user, err := s.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.UserNotFoundCode, xerr.ErrUserNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get user: %w", err))
	}

	if req.Email != "" && req.Email != user.Email {
		if _, err := s.userRepo.GetUserByEmail(ctx, req.Email); err == nil {
			return nil, xerr.NewCodeError(xerr.EmailAlreadyExistsCode, xerr.ErrEmailAlreadyExists)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("check email: %w", err))
		}
		user.Email = req.Email
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, xerr.NewCodeError(xerr.InternalServerErrorCode, fmt.Errorf("hash password: %w", err))
		}
		user.PasswordHash = hash
	}
	if req.ProfilePicture != "" {
		user.ProfilePicture = req.ProfilePicture
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("update user: %w", err))
	}
	return user, nil
}

func (s *userService) SetRole(ctx context.Context, targetID uint64, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, xerr.NewCodeError(xerr.InvalidParamsCode, xerr.ErrInvalidParams)
	}
	user, err := s.userRepo.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.UserNotFoundCode, xerr.ErrUserNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get user: %w", err))
	}
	user.Role = role
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("update role: %w", err))
	}
	logger.Info("User role changed", zap.Uint64("userID", targetID), zap.String("role", role))
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor utils.Principal, targetID uint64) error {
	if actor.UserID != targetID && !actor.IsAdmin() {
		return xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}
	if _, err := s.userRepo.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.NewCodeError(xerr.UserNotFoundCode, xerr.ErrUserNotFound)
		}
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get user: %w", err))
	}

	if err := s.commentRepo.DeleteCommentsByUser(ctx, targetID); err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete user comments: %w", err))
	}

	videos, err := s.videoRepo.DeleteVideosByUser(ctx, targetID)
	if err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete user videos: %w", err))
	}
	for _, v := range videos {
		worker.EnqueueCleanup(s.mqClient, transfer.RemotePath(s.remoteRoot, v.FileName), "owner account deleted")
		if s.search != nil {
			if err := s.search.RemoveVideo(ctx, v.ID); err != nil {
				logger.Warn("Failed to remove video from search index", zap.Uint64("videoID", v.ID), zap.Error(err))
			}
		}
	}

	images, err := s.imageRepo.DeleteImagesByUser(ctx, targetID)
	if err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete user images: %w", err))
	}
	for _, img := range images {
		worker.EnqueueCleanup(s.mqClient, transfer.RemotePath(s.remoteRoot, img.FileName), "owner account deleted")
	}

	if err := s.userRepo.DeleteUser(ctx, targetID); err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete user: %w", err))
	}
	logger.Info("User deleted",
		zap.Uint64("userID", targetID),
		zap.Int("videos", len(videos)),
		zap.Int("images", len(images)))
	return nil
}
