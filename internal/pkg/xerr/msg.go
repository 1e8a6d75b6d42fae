package xerr

import "errors"

var (
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidParams  = errors.New("invalid request parameters")

	// Ingestion pipeline taxonomy. Exactly one of these describes why an
	// upload attempt failed; none of them is retried within a request.
	ErrMalformedBody   = errors.New("malformed multipart body")
	ErrMissingField    = errors.New("title and description are required")
	ErrUnsupportedType = errors.New("uploaded file is not of the expected media type")
	ErrDuplicateTitle  = errors.New("a video with this title already exists for this user")
	ErrTransferConnect = errors.New("remote storage endpoint unreachable")
	ErrTransferBroken  = errors.New("remote transfer failed mid-stream")
	ErrPersistence     = errors.New("failed to persist media record")

	// Authentication and authorization.
	ErrUnauthorized       = errors.New("user is not authorized")
	ErrTokenInvalid       = errors.New("authentication token invalid or expired")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrAccountNotVerified = errors.New("please verify your account")
	ErrForbidden          = errors.New("access denied")

	// Resources.
	ErrUserNotFound    = errors.New("user not found")
	ErrVideoNotFound   = errors.New("video not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrImageNotFound   = errors.New("image not found")

	// Conflicts.
	ErrUserAlreadyExists  = errors.New("username already exists")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrImageAlreadyExists = errors.New("an image with this name already exists")

	// External services.
	ErrDatabase = errors.New("database operation failed")
	ErrMQ       = errors.New("message queue operation failed")
)
