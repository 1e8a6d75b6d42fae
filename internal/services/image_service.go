package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iseelabs/isee/internal/models"
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

type ImageService interface {
	// UploadImage streams one image to remote storage and records it.
	// The record is committed only after the transfer fully succeeds.
	UploadImage(ctx context.Context, actor utils.Principal, fileName, contentType string, data io.Reader) (*models.Image, error)
	GetImage(ctx context.Context, id uint64) (*models.Image, error)
	ListImages(ctx context.Context) ([]models.Image, error)
	ListImagesByUser(ctx context.Context, userID uint64) ([]models.Image, error)
	DeleteImage(ctx context.Context, actor utils.Principal, id uint64) error
}

type imageService struct {
	imageRepo  repositories.ImageRepository
	transfers  transfer.Client
	mqClient   *mq.RabbitMQClient
	remoteRoot string
}

var _ ImageService = (*imageService)(nil)

func NewImageService(imageRepo repositories.ImageRepository, transfers transfer.Client, mqClient *mq.RabbitMQClient, remoteRoot string) ImageService {
	return &imageService{
		imageRepo:  imageRepo,
		transfers:  transfers,
		mqClient:   mqClient,
		remoteRoot: remoteRoot,
	}
}

func (s *imageService) UploadImage(ctx context.Context, actor utils.Principal, fileName, contentType string, data io.Reader) (*models.Image, error) {
	if fileName == "" {
		return nil, xerr.NewCodeError(xerr.MissingFieldCode, xerr.ErrMissingField)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, xerr.NewCodeError(xerr.UnsupportedTypeCode, xerr.ErrUnsupportedType)
	}

	// The duplicate rule is keyed on the name the client sent, not on the
	// generated storage name, which is unique per upload.
	exists, err := s.imageRepo.ImageFileExists(ctx, actor.UserID, fileName)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("check image file: %w", err))
	}
	if exists {
		return nil, xerr.NewCodeError(xerr.ImageAlreadyExistsCode, xerr.ErrImageAlreadyExists)
	}
	stored := ingest.StorageFileName(actor.Username, fileName)

	session, err := s.transfers.Open(ctx)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.TransferConnectCode, fmt.Errorf("%w: %v", xerr.ErrTransferConnect, err))
	}
	defer session.Close()

	remotePath := transfer.RemotePath(s.remoteRoot, stored)
	if err := session.Send(ctx, remotePath, data); err != nil {
		worker.EnqueueCleanup(s.mqClient, remotePath, "image transfer failed mid-stream")
		return nil, xerr.NewCodeError(xerr.TransferTransportCode, fmt.Errorf("%w: %v", xerr.ErrTransferBroken, err))
	}

	image := &models.Image{
		OriginalName: fileName,
		FileName:     stored,
		UserID:       actor.UserID,
		Author:       actor.Username,
	}
	if err := s.imageRepo.CreateImage(ctx, image); err != nil {
		worker.EnqueueCleanup(s.mqClient, remotePath, "image record commit failed")
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, xerr.NewCodeError(xerr.ImageAlreadyExistsCode, xerr.ErrImageAlreadyExists)
		}
		return nil, xerr.NewCodeError(xerr.PersistenceErrorCode, fmt.Errorf("%w: %v", xerr.ErrPersistence, err))
	}

	logger.Info("Image uploaded",
		zap.Uint64("userID", actor.UserID),
		zap.String("fileName", stored))
	return image, nil
}

func (s *imageService) GetImage(ctx context.Context, id uint64) (*models.Image, error) {
	image, err := s.imageRepo.GetImageByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.ImageNotFoundCode, xerr.ErrImageNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get image: %w", err))
	}
	return image, nil
}

func (s *imageService) ListImages(ctx context.Context) ([]models.Image, error) {
	images, err := s.imageRepo.ListImages(ctx)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list images: %w", err))
	}
	return images, nil
}

func (s *imageService) ListImagesByUser(ctx context.Context, userID uint64) ([]models.Image, error) {
	images, err := s.imageRepo.ListImagesByUser(ctx, userID)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("list images: %w", err))
	}
	return images, nil
}

func (s *imageService) DeleteImage(ctx context.Context, actor utils.Principal, id uint64) error {
	image, err := s.imageRepo.GetImageByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.NewCodeError(xerr.ImageNotFoundCode, xerr.ErrImageNotFound)
		}
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get image: %w", err))
	}
	if image.UserID != actor.UserID && !actor.IsAdmin() {
		return xerr.NewCodeError(xerr.ForbiddenCode, xerr.ErrForbidden)
	}
	if err := s.imageRepo.DeleteImage(ctx, id); err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("delete image: %w", err))
	}
	worker.EnqueueCleanup(s.mqClient, transfer.RemotePath(s.remoteRoot, image.FileName), "image deleted")
	return nil
}
