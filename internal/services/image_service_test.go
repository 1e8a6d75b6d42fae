package services_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeImageRepo struct {
	images    []models.Image
	nextID    uint64
	createErr error
}

func (r *fakeImageRepo) CreateImage(_ context.Context, image *models.Image) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	image.ID = r.nextID
	r.images = append(r.images, *image)
	return nil
}

func (r *fakeImageRepo) GetImageByID(_ context.Context, id uint64) (*models.Image, error) {
	for i := range r.images {
		if r.images[i].ID == id {
			return &r.images[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeImageRepo) ImageFileExists(_ context.Context, userID uint64, originalName string) (bool, error) {
	for _, img := range r.images {
		if img.UserID == userID && img.OriginalName == originalName {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeImageRepo) ListImages(context.Context) ([]models.Image, error) {
	return r.images, nil
}

func (r *fakeImageRepo) ListImagesByUser(_ context.Context, userID uint64) ([]models.Image, error) {
	var out []models.Image
	for _, img := range r.images {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (r *fakeImageRepo) DeleteImage(_ context.Context, id uint64) error {
	for i := range r.images {
		if r.images[i].ID == id {
			r.images = append(r.images[:i], r.images[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeImageRepo) DeleteImagesByUser(_ context.Context, userID uint64) ([]models.Image, error) {
	var removed, kept []models.Image
	for _, img := range r.images {
		if img.UserID == userID {
			removed = append(removed, img)
		} else {
			kept = append(kept, img)
		}
	}
	r.images = kept
	return removed, nil
}

type captureTransferClient struct {
	opens   int
	session *captureTransferSession
}

func (c *captureTransferClient) Open(context.Context) (transfer.Session, error) {
	c.opens++
	return c.session, nil
}

type captureTransferSession struct {
	sentPath string
	sent     bytes.Buffer
	sendErr  error
}

func (s *captureTransferSession) Send(_ context.Context, remotePath string, r io.Reader) error {
	s.sentPath = remotePath
	if s.sendErr != nil {
		return s.sendErr
	}
	_, err := io.Copy(&s.sent, r)
	return err
}

func (s *captureTransferSession) Remove(context.Context, string) error { return nil }
func (s *captureTransferSession) Close() error                         { return nil }

func newImageFixture() (*fakeImageRepo, *captureTransferClient, services.ImageService) {
	repo := &fakeImageRepo{}
	client := &captureTransferClient{session: &captureTransferSession{}}
	svc := services.NewImageService(repo, client, nil, "images")
	return repo, client, svc
}

func imageCode(t *testing.T, err error) int {
	t.Helper()
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	return codeErr.Code
}

func TestUploadImageRecordsOriginalAndStoredNames(t *testing.T) {
	repo, client, svc := newImageFixture()
	actor := utils.Principal{UserID: 7, Username: "alice"}

	img, err := svc.UploadImage(context.Background(), actor, "cat.png", "image/png", strings.NewReader("PNG BYTES"))
	require.NoError(t, err)

	assert.Equal(t, "cat.png", img.OriginalName)
	assert.Contains(t, img.FileName, "_alice_cat.png")
	assert.NotEqual(t, img.OriginalName, img.FileName)
	assert.Equal(t, "PNG BYTES", client.session.sent.String())
	assert.Contains(t, client.session.sentPath, img.FileName)
	require.Len(t, repo.images, 1)
}

func TestUploadImageDuplicateNameSameAuthor(t *testing.T) {
	repo, client, svc := newImageFixture()
	actor := utils.Principal{UserID: 7, Username: "alice"}

	_, err := svc.UploadImage(context.Background(), actor, "cat.png", "image/png", strings.NewReader("first"))
	require.NoError(t, err)

	// The storage name embeds a timestamp and differs between uploads;
	// the duplicate rule has to hold regardless.
	_, err = svc.UploadImage(context.Background(), actor, "cat.png", "image/png", strings.NewReader("second"))
	require.Error(t, err)
	assert.Equal(t, xerr.ImageAlreadyExistsCode, imageCode(t, err))
	assert.ErrorIs(t, err, xerr.ErrImageAlreadyExists)
	assert.Len(t, repo.images, 1)
	assert.Equal(t, 1, client.opens, "rejected duplicate must not reach remote storage")
}

func TestUploadImageSameNameDifferentAuthors(t *testing.T) {
	repo, _, svc := newImageFixture()

	_, err := svc.UploadImage(context.Background(), utils.Principal{UserID: 7, Username: "alice"},
		"cat.png", "image/png", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = svc.UploadImage(context.Background(), utils.Principal{UserID: 8, Username: "bob"},
		"cat.png", "image/png", strings.NewReader("b"))
	require.NoError(t, err)
	assert.Len(t, repo.images, 2)
}

func TestUploadImageDuplicateAtCommit(t *testing.T) {
	repo, _, svc := newImageFixture()
	repo.createErr = gorm.ErrDuplicatedKey

	_, err := svc.UploadImage(context.Background(), utils.Principal{UserID: 7, Username: "alice"},
		"cat.png", "image/png", strings.NewReader("a"))
	require.Error(t, err)
	assert.Equal(t, xerr.ImageAlreadyExistsCode, imageCode(t, err))
}

func TestUploadImageRejectsNonImageType(t *testing.T) {
	_, client, svc := newImageFixture()

	_, err := svc.UploadImage(context.Background(), utils.Principal{UserID: 7, Username: "alice"},
		"movie.mp4", "video/mp4", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, xerr.UnsupportedTypeCode, imageCode(t, err))
	assert.Equal(t, 0, client.opens)
}
