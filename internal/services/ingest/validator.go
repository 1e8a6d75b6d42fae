package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/xerr"
)

// Metadata field names the pipeline requires before it will start a transfer.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
)

// RecordStore is the orchestrator's view of the metadata store.
type RecordStore interface {
	// VideoTitleExists reports whether the owner already has a video with
	// this title. Read-only; subject to the concurrent-upload race that the
	// store-level unique index finally closes.
	VideoTitleExists(ctx context.Context, ownerID uint64, title string) (bool, error)

	// CommitVideo persists the record and appends it to the owner's video
	// references in a single transaction.
	CommitVideo(ctx context.Context, video *models.Video) error
}

// Validator applies the upload business preconditions. Purely decisional:
// its only side effect is the duplicate-title read against the record store.
type Validator struct {
	store          RecordStore
	categoryPrefix string // e.g. "video/"
}

func NewValidator(store RecordStore, categoryPrefix string) *Validator {
	return &Validator{store: store, categoryPrefix: categoryPrefix}
}

// RequireFields checks that all required metadata fields have arrived.
// Clients are expected to send metadata before the file part; a file event
// with fields still missing fails rather than buffering indefinitely.
func (v *Validator) RequireFields(fields map[string]string) error {
	for _, name := range []string{FieldTitle, FieldDescription} {
		if strings.TrimSpace(fields[name]) == "" {
			return xerr.NewCodeError(xerr.MissingFieldCode,
				fmt.Errorf("%w: %q", xerr.ErrMissingField, name))
		}
	}
	return nil
}

// CheckFile validates the declared MIME type and the (title, owner)
// uniqueness rule. Runs before any byte is sent to remote storage.
func (v *Validator) CheckFile(ctx context.Context, ownerID uint64, fields map[string]string, contentType string) error {
	if !strings.HasPrefix(contentType, v.categoryPrefix) {
		return xerr.NewCodeError(xerr.UnsupportedTypeCode,
			fmt.Errorf("%w: got %q, want %s*", xerr.ErrUnsupportedType, contentType, v.categoryPrefix))
	}

	exists, err := v.store.VideoTitleExists(ctx, ownerID, fields[FieldTitle])
	if err != nil {
		return xerr.NewCodeError(xerr.DatabaseErrorCode,
			fmt.Errorf("%w: duplicate-title check: %v", xerr.ErrDatabase, err))
	}
	if exists {
		return xerr.NewCodeError(xerr.DuplicateTitleCode, xerr.ErrDuplicateTitle)
	}
	return nil
}
