package ingest_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransferClient hands out a single recording session.
type fakeTransferClient struct {
	openErr error
	session *fakeSession
	opens   int
}

func (c *fakeTransferClient) Open(ctx context.Context) (transfer.Session, error) {
	c.opens++
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.session, nil
}

type fakeSession struct {
	sendErr    error
	sentPath   string
	sent       []byte
	closeCalls int
}

func (s *fakeSession) Send(ctx context.Context, remotePath string, r io.Reader) error {
	s.sentPath = remotePath
	if s.sendErr != nil {
		// Drain partially, like a connection dying mid-stream.
		io.CopyN(io.Discard, r, 4)
		return s.sendErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.sent = data
	return nil
}

func (s *fakeSession) Remove(ctx context.Context, remotePath string) error { return nil }

func (s *fakeSession) Close() error {
	s.closeCalls++
	return nil
}

type orphanRecorder struct {
	paths   []string
	reasons []string
}

func (r *orphanRecorder) record(remotePath, reason string) {
	r.paths = append(r.paths, remotePath)
	r.reasons = append(r.reasons, reason)
}

func newOrchestrator(store *fakeRecordStore, client *fakeTransferClient, orphans *orphanRecorder) *ingest.Orchestrator {
	return ingest.NewOrchestrator(
		ingest.Owner{ID: 7, Username: "alice"},
		ingest.NewValidator(store, "video/"),
		store,
		client,
		"videos",
		orphans.record,
	)
}

func runUpload(t *testing.T, orch *ingest.Orchestrator, fields [][2]string, fileName, contentType, content string) error {
	t.Helper()
	body, boundary := buildMultipartBody(t, fields, fileName, contentType, content)
	sc := ingest.NewScanner(body, boundary, testMaxFieldBytes)
	_, err := orch.Run(context.Background(), sc)
	return err
}

var validFields = [][2]string{{"title", "my trip"}, {"description", "a day out"}}

func TestUploadCommitsAfterSuccessfulTransfer(t *testing.T) {
	store := &fakeRecordStore{}
	session := &fakeSession{}
	client := &fakeTransferClient{session: session}
	orphans := &orphanRecorder{}
	orch := newOrchestrator(store, client, orphans)

	body, boundary := buildMultipartBody(t, validFields, "trip.mp4", "video/mp4", "FAKE VIDEO BYTES")
	video, err := orch.Run(context.Background(), ingest.NewScanner(body, boundary, testMaxFieldBytes))
	require.NoError(t, err)

	assert.Equal(t, ingest.StateDone, orch.State())
	assert.Equal(t, "FAKE VIDEO BYTES", string(session.sent))
	assert.Equal(t, 1, session.closeCalls)
	assert.Empty(t, orphans.paths)

	require.Equal(t, 1, store.committedCount())
	assert.Equal(t, "my trip", video.Title)
	assert.Equal(t, "a day out", video.Description)
	assert.Equal(t, uint64(7), video.UserID)
	assert.Equal(t, "alice", video.Username)
	assert.Contains(t, video.FileName, "_alice_trip.mp4")
	assert.Equal(t, transfer.RemotePath("videos", video.FileName), session.sentPath)
}

func TestUploadDuplicateTitleNeverOpensTransfer(t *testing.T) {
	store := &fakeRecordStore{exists: true}
	client := &fakeTransferClient{session: &fakeSession{}}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	err := runUpload(t, orch, validFields, "trip.mp4", "video/mp4", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.DuplicateTitleCode, codeErr.Code)

	assert.Equal(t, 0, client.opens)
	assert.Equal(t, 0, store.committedCount())
	assert.Equal(t, ingest.StateFailed, orch.State())
}

func TestUploadWrongTypeNeverOpensTransfer(t *testing.T) {
	store := &fakeRecordStore{}
	client := &fakeTransferClient{session: &fakeSession{}}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	err := runUpload(t, orch, validFields, "cat.png", "image/png", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.UnsupportedTypeCode, codeErr.Code)
	assert.Equal(t, 0, client.opens)
	assert.Equal(t, 0, store.committedCount())
}

func TestUploadFileBeforeFieldsRejected(t *testing.T) {
	store := &fakeRecordStore{}
	client := &fakeTransferClient{session: &fakeSession{}}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	// Only a file part, no metadata fields at all.
	err := runUpload(t, orch, nil, "trip.mp4", "video/mp4", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.MissingFieldCode, codeErr.Code)
	assert.Equal(t, 0, client.opens)
}

func TestUploadBodyWithoutFileRejected(t *testing.T) {
	store := &fakeRecordStore{}
	client := &fakeTransferClient{session: &fakeSession{}}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	err := runUpload(t, orch, validFields, "", "", "")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.MissingFieldCode, codeErr.Code)
	assert.Equal(t, 0, store.committedCount())
}

func TestUploadConnectFailure(t *testing.T) {
	store := &fakeRecordStore{}
	client := &fakeTransferClient{openErr: errors.New("connection refused")}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	err := runUpload(t, orch, validFields, "trip.mp4", "video/mp4", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.TransferConnectCode, codeErr.Code)
	assert.Equal(t, 0, store.committedCount())
}

func TestUploadMidStreamFailureLeavesNoRecord(t *testing.T) {
	store := &fakeRecordStore{}
	session := &fakeSession{sendErr: errors.New("broken pipe")}
	client := &fakeTransferClient{session: session}
	orphans := &orphanRecorder{}
	orch := newOrchestrator(store, client, orphans)

	err := runUpload(t, orch, validFields, "trip.mp4", "video/mp4", "FAKE VIDEO BYTES")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.TransferTransportCode, codeErr.Code)

	assert.Equal(t, 0, store.committedCount(), "no record may exist for a failed transfer")
	assert.Equal(t, 1, session.closeCalls, "the session must be released")
	require.Len(t, orphans.paths, 1)
	assert.Equal(t, session.sentPath, orphans.paths[0])
}

func TestUploadCommitFailureReportsOrphan(t *testing.T) {
	store := &fakeRecordStore{commitErr: errors.New("db down")}
	session := &fakeSession{}
	client := &fakeTransferClient{session: session}
	orphans := &orphanRecorder{}
	orch := newOrchestrator(store, client, orphans)

	err := runUpload(t, orch, validFields, "trip.mp4", "video/mp4", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.PersistenceErrorCode, codeErr.Code)

	require.Len(t, orphans.paths, 1)
	assert.Equal(t, "record commit failed", orphans.reasons[0])
	assert.Equal(t, ingest.StateFailed, orch.State())
}

func TestUploadCommitRaceReportsDuplicateTitle(t *testing.T) {
	// A concurrent upload can take the (owner, title) slot after the
	// advisory check; the store then reports the duplicate at commit time.
	store := &fakeRecordStore{commitErr: xerr.ErrDuplicateTitle}
	session := &fakeSession{}
	client := &fakeTransferClient{session: session}
	orphans := &orphanRecorder{}
	orch := newOrchestrator(store, client, orphans)

	err := runUpload(t, orch, validFields, "trip.mp4", "video/mp4", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.DuplicateTitleCode, codeErr.Code)
	assert.ErrorIs(t, err, xerr.ErrDuplicateTitle)

	require.Len(t, orphans.paths, 1)
	assert.Equal(t, "record commit failed", orphans.reasons[0])
	assert.Equal(t, ingest.StateFailed, orch.State())
}

func TestUploadBlankedFieldBeforeFileRejected(t *testing.T) {
	store := &fakeRecordStore{}
	client := &fakeTransferClient{session: &fakeSession{}}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	// Valid fields first, then a duplicate title field that blanks the
	// value, then the file.
	fields := append(append([][2]string{}, validFields...), [2]string{"title", "   "})
	err := runUpload(t, orch, fields, "trip.mp4", "video/mp4", "bytes")
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.MissingFieldCode, codeErr.Code)
	assert.Equal(t, 0, client.opens)
	assert.Equal(t, 0, store.committedCount())
}

func TestUploadSecondFileRejectedAndFirstOrphaned(t *testing.T) {
	store := &fakeRecordStore{}
	session := &fakeSession{}
	client := &fakeTransferClient{session: session}
	orphans := &orphanRecorder{}
	orch := newOrchestrator(store, client, orphans)

	// Hand-roll a body with two file parts.
	body, boundary := func() (io.Reader, string) {
		b := &strings.Builder{}
		boundary := "testboundary42"
		for _, f := range validFields {
			b.WriteString("--" + boundary + "\r\n")
			b.WriteString(`Content-Disposition: form-data; name="` + f[0] + `"` + "\r\n\r\n")
			b.WriteString(f[1] + "\r\n")
		}
		for _, name := range []string{"one.mp4", "two.mp4"} {
			b.WriteString("--" + boundary + "\r\n")
			b.WriteString(`Content-Disposition: form-data; name="file"; filename="` + name + `"` + "\r\n")
			b.WriteString("Content-Type: video/mp4\r\n\r\n")
			b.WriteString("content of " + name + "\r\n")
		}
		b.WriteString("--" + boundary + "--\r\n")
		return strings.NewReader(b.String()), boundary
	}()

	_, err := orch.Run(context.Background(), ingest.NewScanner(body, boundary, testMaxFieldBytes))
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.InvalidParamsCode, codeErr.Code)

	// The first transfer succeeded, so its remote object is now orphaned.
	assert.Equal(t, 0, store.committedCount())
	require.Len(t, orphans.paths, 1)
	assert.Equal(t, "second file part rejected", orphans.reasons[0])
	assert.Contains(t, orphans.paths[0], "one.mp4")
}

func TestUploadTrailingFieldsIgnored(t *testing.T) {
	store := &fakeRecordStore{}
	session := &fakeSession{}
	client := &fakeTransferClient{session: session}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	body, boundary := func() (io.Reader, string) {
		b := &strings.Builder{}
		boundary := "testboundary43"
		for _, f := range validFields {
			b.WriteString("--" + boundary + "\r\n")
			b.WriteString(`Content-Disposition: form-data; name="` + f[0] + `"` + "\r\n\r\n")
			b.WriteString(f[1] + "\r\n")
		}
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(`Content-Disposition: form-data; name="file"; filename="trip.mp4"` + "\r\n")
		b.WriteString("Content-Type: video/mp4\r\n\r\n")
		b.WriteString("bytes\r\n")
		// A trailing field after the file must not rewrite the metadata.
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString(`Content-Disposition: form-data; name="title"` + "\r\n\r\n")
		b.WriteString("sneaky new title\r\n")
		b.WriteString("--" + boundary + "--\r\n")
		return strings.NewReader(b.String()), boundary
	}()

	video, err := orch.Run(context.Background(), ingest.NewScanner(body, boundary, testMaxFieldBytes))
	require.NoError(t, err)
	assert.Equal(t, "my trip", video.Title)
}

func TestUploadCancelledContextAbortsTransfer(t *testing.T) {
	store := &fakeRecordStore{}
	session := &fakeSession{}
	client := &fakeTransferClient{session: session}
	orch := newOrchestrator(store, client, &orphanRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body, boundary := buildMultipartBody(t, validFields, "trip.mp4", "video/mp4", "bytes")
	_, err := orch.Run(ctx, ingest.NewScanner(body, boundary, testMaxFieldBytes))
	require.Error(t, err)
	assert.Equal(t, 0, store.committedCount())
	assert.Equal(t, 1, session.closeCalls)
}

func TestStorageFileNameUniquePerCall(t *testing.T) {
	a := ingest.StorageFileName("alice", "trip.mp4")
	b := ingest.StorageFileName("alice", "trip.mp4")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "_alice_trip.mp4")
}
