package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/iseelabs/isee/internal/pkg/xerr"
)

// EventKind tags a demultiplexed body event.
type EventKind int

const (
	// EventField is a non-file form field, fully buffered into Value.
	EventField EventKind = iota + 1
	// EventFile is a file part; Data is positioned at the first content byte.
	EventFile
)

// Event is one tagged element of the multipart body, produced in arrival
// order.
type Event struct {
	Kind EventKind
	Name string

	// Field events.
	Value string

	// File events. Data remains valid only until the next call to Next:
	// the underlying transport is a single ordered byte channel, so the
	// stream must be drained (or abandoned) before another event can exist.
	Filename    string
	ContentType string
	Data        io.Reader
}

// Scanner demultiplexes a streaming multipart body into an ordered, finite,
// non-restartable sequence of events. It never buffers file content.
type Scanner struct {
	mr            *multipart.Reader
	closing       *closingDelimiterTracker
	maxFieldBytes int64
	done          bool
}

// NewScanner wraps a live request body. boundary comes from the request's
// Content-Type header; maxFieldBytes caps a single non-file field.
func NewScanner(body io.Reader, boundary string, maxFieldBytes int64) *Scanner {
	tracker := &closingDelimiterTracker{
		r:      body,
		marker: []byte("--" + boundary + "--"),
	}
	return &Scanner{
		mr:            multipart.NewReader(tracker, boundary),
		closing:       tracker,
		maxFieldBytes: maxFieldBytes,
	}
}

// closingDelimiterTracker watches the raw byte stream for the closing
// delimiter line. multipart.Reader reports io.EOF both for a properly
// terminated body and for one that was cut off mid-stream; the tracker
// tells the two apart.
type closingDelimiterTracker struct {
	r      io.Reader
	marker []byte
	tail   []byte
	seen   bool
}

func (t *closingDelimiterTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 && !t.seen {
		t.tail = append(t.tail, p[:n]...)
		if bytes.Contains(t.tail, t.marker) {
			t.seen = true
			t.tail = nil
		} else if keep := len(t.marker) - 1; len(t.tail) > keep {
			t.tail = append([]byte(nil), t.tail[len(t.tail)-keep:]...)
		}
	}
	return n, err
}

// Next returns the next event in body order. It returns io.EOF after the
// final part and a MalformedBody error when the framing cannot be parsed;
// either way the sequence is over.
//
// Calling Next invalidates the Data reader of a previous file event: the
// parser skips whatever the caller left unread.
func (s *Scanner) Next() (*Event, error) {
	if s.done {
		return nil, io.EOF
	}

	part, err := s.mr.NextPart()
	if err != nil {
		s.done = true
		if errors.Is(err, io.EOF) {
			if !s.closing.seen {
				return nil, xerr.NewCodeError(xerr.MalformedBodyCode,
					fmt.Errorf("%w: body ended before the closing delimiter", xerr.ErrMalformedBody))
			}
			return nil, io.EOF
		}
		return nil, xerr.NewCodeError(xerr.MalformedBodyCode,
			fmt.Errorf("%w: %v", xerr.ErrMalformedBody, err))
	}

	if part.FileName() == "" {
		// Ordinary field: buffer the whole value.
		value, err := io.ReadAll(io.LimitReader(part, s.maxFieldBytes+1))
		if err != nil {
			s.done = true
			return nil, xerr.NewCodeError(xerr.MalformedBodyCode,
				fmt.Errorf("%w: reading field %q: %v", xerr.ErrMalformedBody, part.FormName(), err))
		}
		if int64(len(value)) > s.maxFieldBytes {
			s.done = true
			return nil, xerr.NewCodeError(xerr.MalformedBodyCode,
				fmt.Errorf("%w: field %q exceeds %d bytes", xerr.ErrMalformedBody, part.FormName(), s.maxFieldBytes))
		}
		return &Event{
			Kind:  EventField,
			Name:  part.FormName(),
			Value: string(value),
		}, nil
	}

	return &Event{
		Kind:        EventFile,
		Name:        part.FormName(),
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Data:        part,
	}, nil
}
