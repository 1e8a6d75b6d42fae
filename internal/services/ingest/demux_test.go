package ingest_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/iseelabs/isee/internal/pkg/xerr"
	"github.com/iseelabs/isee/internal/services/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxFieldBytes = 1 << 10

// buildMultipartBody assembles a well-formed body with the given fields
// followed by one optional file part.
func buildMultipartBody(t *testing.T, fields [][2]string, fileName, contentType, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range fields {
		require.NoError(t, w.WriteField(f[0], f[1]))
	}
	if fileName != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + fileName + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(part, fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.Boundary()
}

func TestScannerEmitsEventsInBodyOrder(t *testing.T) {
	body, boundary := buildMultipartBody(t,
		[][2]string{{"title", "my trip"}, {"description", "a day at the lake"}},
		"trip.mp4", "video/mp4", "FAKE VIDEO BYTES")
	sc := ingest.NewScanner(body, boundary, testMaxFieldBytes)

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, ingest.EventField, ev.Kind)
	assert.Equal(t, "title", ev.Name)
	assert.Equal(t, "my trip", ev.Value)

	ev, err = sc.Next()
	require.NoError(t, err)
	assert.Equal(t, ingest.EventField, ev.Kind)
	assert.Equal(t, "description", ev.Name)
	assert.Equal(t, "a day at the lake", ev.Value)

	ev, err = sc.Next()
	require.NoError(t, err)
	assert.Equal(t, ingest.EventFile, ev.Kind)
	assert.Equal(t, "trip.mp4", ev.Filename)
	assert.Equal(t, "video/mp4", ev.ContentType)
	content, err := io.ReadAll(ev.Data)
	require.NoError(t, err)
	assert.Equal(t, "FAKE VIDEO BYTES", string(content))

	_, err = sc.Next()
	assert.ErrorIs(t, err, io.EOF)

	// The sequence is finite: once over, it stays over.
	_, err = sc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestScannerMalformedFraming(t *testing.T) {
	// A boundary line followed by headers that are cut off mid-stream.
	raw := "--BOUNDARY\r\nContent-Disposition: form-data; name=\"title\"\r\n"
	sc := ingest.NewScanner(strings.NewReader(raw), "BOUNDARY", testMaxFieldBytes)

	_, err := sc.Next()
	require.Error(t, err)
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.MalformedBodyCode, codeErr.Code)
	assert.ErrorIs(t, err, xerr.ErrMalformedBody)

	_, err = sc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestScannerTruncatedBeforeClosingDelimiter(t *testing.T) {
	body, boundary := buildMultipartBody(t,
		[][2]string{{"title", "my trip"}, {"description", "a day at the lake"}},
		"", "", "")
	full := body.Bytes()
	cut := bytes.Index(full, []byte("--"+boundary+"--"))
	require.Greater(t, cut, 0)
	sc := ingest.NewScanner(bytes.NewReader(full[:cut]), boundary, testMaxFieldBytes)

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "title", ev.Name)

	for err == nil {
		_, err = sc.Next()
	}
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.MalformedBodyCode, codeErr.Code)
}

func TestScannerRejectsOversizedField(t *testing.T) {
	body, boundary := buildMultipartBody(t,
		[][2]string{{"title", strings.Repeat("x", testMaxFieldBytes+1)}},
		"", "", "")
	sc := ingest.NewScanner(body, boundary, testMaxFieldBytes)

	_, err := sc.Next()
	require.Error(t, err)
	var codeErr *xerr.CodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, xerr.MalformedBodyCode, codeErr.Code)
}

func TestScannerFieldAtSizeCapPasses(t *testing.T) {
	body, boundary := buildMultipartBody(t,
		[][2]string{{"title", strings.Repeat("x", testMaxFieldBytes)}},
		"", "", "")
	sc := ingest.NewScanner(body, boundary, testMaxFieldBytes)

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Len(t, ev.Value, testMaxFieldBytes)
}
