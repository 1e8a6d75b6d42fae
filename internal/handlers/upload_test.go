package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iseelabs/isee/internal/config"
	"github.com/iseelabs/isee/internal/handlers"
	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/utils"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVideoService implements only the pipeline-facing half of the video
// service. The embedded interface panics on everything else, which the
// upload path never touches.
type stubVideoService struct {
	services.VideoService
	mu        sync.Mutex
	exists    bool
	commitErr error
	committed []*models.Video
}

func (s *stubVideoService) VideoTitleExists(ctx context.Context, ownerID uint64, title string) (bool, error) {
	return s.exists, nil
}

func (s *stubVideoService) CommitVideo(ctx context.Context, video *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	video.ID = uint64(len(s.committed) + 1)
	s.committed = append(s.committed, video)
	return nil
}

type stubTransferClient struct {
	openErr error
	sendErr error
	sent    []byte
}

func (c *stubTransferClient) Open(ctx context.Context) (transfer.Session, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return &stubTransferSession{client: c}, nil
}

type stubTransferSession struct {
	client *stubTransferClient
}

func (s *stubTransferSession) Send(ctx context.Context, remotePath string, r io.Reader) error {
	if s.client.sendErr != nil {
		return s.client.sendErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.client.sent = data
	return nil
}

func (s *stubTransferSession) Remove(ctx context.Context, remotePath string) error { return nil }
func (s *stubTransferSession) Close() error                                        { return nil }

func uploadRouter(svc services.VideoService, transfers transfer.Client, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Upload: config.UploadConfig{CategoryPrefix: "video/", MaxFieldBytes: 1 << 20},
	}
	r := gin.New()
	handlerChain := []gin.HandlerFunc{}
	if authenticated {
		handlerChain = append(handlerChain, func(c *gin.Context) {
			c.Set(utils.CtxUserIDKey, uint64(7))
			c.Set(utils.CtxUsernameKey, "alice")
			c.Set(utils.CtxRoleKey, "user")
		})
	}
	handlerChain = append(handlerChain, handlers.UploadVideo(svc, transfers, nil, cfg, "videos"))
	r.POST("/api/v1/videos", handlerChain...)
	return r
}

func multipartUpload(t *testing.T, fields map[string]string, fileName, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, name := range []string{"title", "description"} {
		if v, ok := fields[name]; ok {
			require.NoError(t, w.WriteField(name, v))
		}
	}
	if fileName != "" {
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {`form-data; name="file"; filename="` + fileName + `"`},
			"Content-Type":        {contentType},
		})
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func doUpload(r *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) xerr.Response {
	t.Helper()
	var resp xerr.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

var uploadFields = map[string]string{"title": "my trip", "description": "a day out"}

func TestUploadVideoCreated(t *testing.T) {
	svc := &stubVideoService{}
	transfers := &stubTransferClient{}
	r := uploadRouter(svc, transfers, true)

	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "FAKE VIDEO BYTES")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, xerr.SuccessCode, resp.Code)
	assert.Equal(t, "FAKE VIDEO BYTES", string(transfers.sent))
	require.Len(t, svc.committed, 1)
	assert.Equal(t, "my trip", svc.committed[0].Title)
	assert.Equal(t, uint64(7), svc.committed[0].UserID)
}

func TestUploadVideoRequiresAuth(t *testing.T) {
	r := uploadRouter(&stubVideoService{}, &stubTransferClient{}, false)
	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadVideoRejectsNonMultipart(t *testing.T) {
	r := uploadRouter(&stubVideoService{}, &stubTransferClient{}, true)
	rec := doUpload(r, bytes.NewBufferString(`{"title":"t"}`), "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, xerr.MalformedBodyCode, decodeEnvelope(t, rec).Code)
}

func TestUploadVideoMissingDescription(t *testing.T) {
	svc := &stubVideoService{}
	r := uploadRouter(svc, &stubTransferClient{}, true)

	body, ct := multipartUpload(t, map[string]string{"title": "my trip"}, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, xerr.MissingFieldCode, decodeEnvelope(t, rec).Code)
	assert.Empty(t, svc.committed)
}

func TestUploadVideoDuplicateTitle(t *testing.T) {
	svc := &stubVideoService{exists: true}
	transfers := &stubTransferClient{}
	r := uploadRouter(svc, transfers, true)

	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, xerr.DuplicateTitleCode, decodeEnvelope(t, rec).Code)
	assert.Nil(t, transfers.sent, "no byte may reach remote storage for a duplicate")
}

func TestUploadVideoWrongType(t *testing.T) {
	r := uploadRouter(&stubVideoService{}, &stubTransferClient{}, true)

	body, ct := multipartUpload(t, uploadFields, "cat.png", "image/png", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, xerr.UnsupportedTypeCode, decodeEnvelope(t, rec).Code)
}

func TestUploadVideoTransferFailure(t *testing.T) {
	svc := &stubVideoService{}
	r := uploadRouter(svc, &stubTransferClient{sendErr: errors.New("broken pipe")}, true)

	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, xerr.TransferTransportCode, decodeEnvelope(t, rec).Code)
	assert.Empty(t, svc.committed)
}

func TestUploadVideoConnectFailure(t *testing.T) {
	r := uploadRouter(&stubVideoService{}, &stubTransferClient{openErr: errors.New("connection refused")}, true)

	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, xerr.TransferConnectCode, decodeEnvelope(t, rec).Code)
}

func TestUploadVideoCommitFailure(t *testing.T) {
	svc := &stubVideoService{commitErr: errors.New("db down")}
	r := uploadRouter(svc, &stubTransferClient{}, true)

	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, xerr.PersistenceErrorCode, decodeEnvelope(t, rec).Code)
}

func TestUploadVideoCommitRaceReportsDuplicate(t *testing.T) {
	// The advisory check passed but a concurrent upload took the title
	// before the commit landed.
	svc := &stubVideoService{commitErr: xerr.ErrDuplicateTitle}
	r := uploadRouter(svc, &stubTransferClient{}, true)

	body, ct := multipartUpload(t, uploadFields, "trip.mp4", "video/mp4", "bytes")
	rec := doUpload(r, body, ct)

	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, xerr.DuplicateTitleCode, decodeEnvelope(t, rec).Code)
}

func TestUploadVideoTruncatedBody(t *testing.T) {
	svc := &stubVideoService{}
	r := uploadRouter(svc, &stubTransferClient{}, true)

	body, ct := multipartUpload(t, uploadFields, "", "", "")
	full := body.Bytes()
	cut := bytes.LastIndex(full, []byte("--"))
	rec := doUpload(r, bytes.NewBuffer(full[:cut]), ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, xerr.MalformedBodyCode, decodeEnvelope(t, rec).Code)
	assert.Empty(t, svc.committed)
}
