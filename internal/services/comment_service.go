package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/repositories"
	"gorm.io/gorm"
)

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentService interface {
	CreateComment(ctx context.Context, actor utils.Principal, videoID uint64, req *CreateCommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context) ([]models.Comment, error)
	ListCommentsByVideo(ctx context.Context, videoID uint64) ([]models.Comment, error)
	DeleteComment(ctx context.Context, actor utils.Principal, id uint64) error
}

type commentService struct {
	commentRepo repositories.CommentRepository
	videoRepo   repositories.VideoRepository
}

var _ CommentService = (*commentService)(nil)

func NewCommentService(commentRepo repositories.CommentRepository, videoRepo repositories.VideoRepository) CommentService {
	return &commentService{commentRepo: commentRepo, videoRepo: videoRepo}
}

func (s *commentService) CreateComment(ctx context.Context, actor utils.Principal, videoID uint64, req *CreateCommentRequest) (*models.Comment, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, xerr.NewCodeError(xerr.InvalidParamsCode, xerr.ErrInvalidParams)
	}
	video, err := s.videoRepo.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.VideoNotFoundCode, xerr.ErrVideoNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get video: %w", err))
	}
	if !video.Visible() {
		return nil, xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}

	comment := &models.Comment{
		VideoID:  videoID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Content:  req.Content,
	}
	if err := s.commentRepo.CreateComment(ctx, comment); err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("create comment: %w", err))
	}
	return comment, nil
}

func (s *commentService) ListComments(ctx context.Context) ([]models.Comment, error) {
	comments, err := s.commentRepo.ListComments(ctx)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list comments: %w", err))
	}
	return comments, nil
}

func (s *commentService) ListCommentsByVideo(ctx context.Context, videoID uint64) ([]models.Comment, error) {
	if _, err := s.videoRepo.GetVideoByID(ctx, videoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.VideoNotFoundCode, xerr.ErrVideoNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get video: %w", err))
	}
	comments, err := s.commentRepo.ListCommentsByVideo(ctx, videoID)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list comments: %w", err))
	}
	return comments, nil
}

func (s *commentService) DeleteComment(ctx context.Context, actor utils.Principal, id uint64) error {
	comment, err := s.commentRepo.GetCommentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.NewCodeError(xerr.CommentNotFoundCode, xerr.ErrCommentNotFound)
		}
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get comment: %w", err))
	}
	if comment.UserID != actor.UserID && !actor.IsAdmin() {
		return xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}
	if err := s.commentRepo.DeleteComment(ctx, id); err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete comment: %w", err))
	}
	return nil
}
