package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/mailer"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*models.User, error)
	// VerifyEmail consumes the token from the verification link and marks
	// the account usable for login.
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
}

type authService struct {
	userRepo repositories.UserRepository
	mail     mailer.Sender
	cfg      *config.Config
}

var _ AuthService = (*authService)(nil)

func NewAuthService(userRepo repositories.UserRepository, mail mailer.Sender, cfg *config.Config) AuthService {
	return &authService{userRepo: userRepo, mail: mail, cfg: cfg}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	if _, err := s.userRepo.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, xerr.NewCodeError(xerr.UserAlreadyExistsCode, xerr.ErrUserAlreadyExists)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("check username: %w", err))
	}
	if _, err := s.userRepo.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, xerr.NewCodeError(xerr.EmailAlreadyExistsCode, xerr.ErrEmailAlreadyExists)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("check email: %w", err))
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.InternalServerErrorCode, fmt.Errorf("hash password: %w", err))
	}

	// Without SMTP there is no way to deliver the link, so accounts start
	// verified in that mode.
	_, mailDisabled := s.mail.(mailer.NoopSender)

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		Verified:     mailDisabled,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("create user: %w", err))
	}

	if !mailDisabled {
		token, err := utils.GenerateVerificationToken(user.Email, &s.cfg.JWT)
		if err != nil {
			return nil, xerr.NewCodeError(xerr.InternalServerErrorCode, fmt.Errorf("generate verification token: %w", err))
		}
		link := fmt.Sprintf("%s/api/v1/users/verify?token=%s", s.cfg.Server.PublicBase, token)
		if err := s.mail.SendVerification(ctx, user.Email, user.Username, link); err != nil {
			// The account exists either way. The user can ask for a resend.
			logger.Warn("Failed to send verification mail", zap.String("email", user.Email), zap.Error(err))
		}
	}

	logger.Info("User registered", zap.Uint64("userID", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	email, err := utils.ParseVerificationToken(token, &s.cfg.JWT)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.TokenInvalidCode, xerr.ErrTokenInvalid)
	}
	user, err := s.userRepo.MarkVerified(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.UserNotFoundCode, xerr.ErrUserNotFound)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("mark verified: %w", err))
	}
	logger.Info("User verified", zap.Uint64("userID", user.ID))
	return user, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.NewCodeError(xerr.InvalidCredentialsCode, xerr.ErrInvalidCredentials)
		}
		return nil, xerr.NewCodeError(xerr.DatabaseErrorCode, fmt.Errorf("get user: %w", err))
	}
	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, xerr.NewCodeError(xerr.InvalidCredentialsCode, xerr.ErrInvalidCredentials)
	}
	if !user.Verified {
		return nil, xerr.NewCodeError(xerr.AccountNotVerifiedCode, xerr.ErrAccountNotVerified)
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, &s.cfg.JWT)
	if err != nil {
		return nil, xerr.NewCodeError(xerr.InternalServerErrorCode, fmt.Errorf("generate token: %w", err))
	}
	logger.Info("User logged in", zap.Uint64("userID", user.ID))
	return &LoginResponse{Token: token, User: user}, nil
}
