package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iseelabs/isee/internal/models"
	"github.com/iseelabs/isee/internal/pkg/logger"
	"github.com/iseelabs/isee/internal/pkg/transfer"
	"github.com/iseelabs/isee/internal/pkg/xerr"
	"go.uber.org/zap"
)

// State is the orchestrator's position in one upload attempt.
type State int

const (
	StateAwaitingFields State = iota
	StateAwaitingFile
	StateTransferring
	StateCommitting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingFields:
		return "awaiting_fields"
	case StateAwaitingFile:
		return "awaiting_file"
	case StateTransferring:
		return "transferring"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Owner identifies the authenticated uploader.
type Owner struct {
	ID       uint64
	Username string
}

// OrphanFunc is called when a transferred remote object ends up without a
// record (commit failure, rejected trailing file). It hands the path to the
// cleanup queue.
type OrphanFunc func(remotePath, reason string)

// Orchestrator drives a single upload attempt through the pipeline:
// demultiplex → validate → transfer → commit. One instance per request,
// never reused.
//
// Its observable side effects are bounded: exactly one remote file creation
// attempt, at most one record creation, at most one owner-reference update.
// A record is committed if and only if the remote transfer acknowledged the
// final byte; a transfer whose record cannot be committed is reported to the
// orphan callback.
type Orchestrator struct {
	owner      Owner
	validator  *Validator
	store      RecordStore
	transfers  transfer.Client
	remoteRoot string
	orphaned   OrphanFunc

	state progress
}

// progress is the mutable per-attempt state.
type progress struct {
	current  State
	fields   map[string]string
	fileName string // generated storage name, set when the transfer starts
	title    string // captured at file-event time; trailing edits are ignored
	desc     string
}

func NewOrchestrator(owner Owner, validator *Validator, store RecordStore, transfers transfer.Client, remoteRoot string, orphaned OrphanFunc) *Orchestrator {
	if orphaned == nil {
		orphaned = func(string, string) {}
	}
	return &Orchestrator{
		owner:      owner,
		validator:  validator,
		store:      store,
		transfers:  transfers,
		remoteRoot: remoteRoot,
		orphaned:   orphaned,
		state: progress{
			current: StateAwaitingFields,
			fields:  make(map[string]string),
		},
	}
}

// State exposes the current state for observability and tests.
func (o *Orchestrator) State() State {
	return o.state.current
}

// Run consumes the event sequence and returns the committed record, or an
// *xerr.CodeError naming exactly one failure reason. ctx is the inbound
// request context: when the client drops, the in-flight transfer is
// cancelled and the session released, and no record is created.
func (o *Orchestrator) Run(ctx context.Context, sc *Scanner) (*models.Video, error) {
	for {
		ev, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Demultiplexer parse failure from any state.
			return nil, o.fail(err)
		}

		switch ev.Kind {
		case EventField:
			o.consumeField(ev)
		case EventFile:
			if err := o.consumeFile(ctx, ev); err != nil {
				return nil, o.fail(err)
			}
		}
	}

	if o.state.current != StateCommitting {
		// The body ended without an accepted file part.
		return nil, o.fail(xerr.NewCodeError(xerr.MissingFieldCode,
			fmt.Errorf("%w: no file part in request", xerr.ErrMissingField)))
	}

	return o.commit(ctx)
}

func (o *Orchestrator) consumeField(ev *Event) {
	if o.state.current == StateCommitting {
		// Metadata was captured and validated when the transfer started;
		// trailing fields cannot retroactively change it.
		logger.Debug("Ignoring field after file part", zap.String("field", ev.Name))
		return
	}
	// A later duplicate field may overwrite an accepted value, even blank
	// it out. The state is not rolled back here: consumeFile re-runs
	// RequireFields against the final values before any byte moves, so a
	// blanked field still rejects the upload.
	o.state.fields[ev.Name] = ev.Value
	if o.state.current == StateAwaitingFields && o.validator.RequireFields(o.state.fields) == nil {
		o.state.current = StateAwaitingFile
	}
}

func (o *Orchestrator) consumeFile(ctx context.Context, ev *Event) error {
	if o.state.current == StateCommitting {
		// One file per request. The first transfer already succeeded, so its
		// remote object is now orphaned and handed to the cleanup queue.
		o.orphaned(transfer.RemotePath(o.remoteRoot, o.state.fileName), "second file part rejected")
		return xerr.NewCodeError(xerr.InvalidParamsCode,
			fmt.Errorf("%w: only one file per upload", xerr.ErrInvalidParams))
	}

	if err := o.validator.RequireFields(o.state.fields); err != nil {
		return err
	}
	if err := o.validator.CheckFile(ctx, o.owner.ID, o.state.fields, ev.ContentType); err != nil {
		return err
	}

	o.state.title = o.state.fields[FieldTitle]
	o.state.desc = o.state.fields[FieldDescription]
	o.state.fileName = StorageFileName(o.owner.Username, ev.Filename)
	o.state.current = StateTransferring

	session, err := o.transfers.Open(ctx)
	if err != nil {
		return xerr.NewCodeError(xerr.TransferConnectCode,
			fmt.Errorf("%w: %v", xerr.ErrTransferConnect, err))
	}
	defer session.Close()

	remotePath := transfer.RemotePath(o.remoteRoot, o.state.fileName)
	logger.Info("Starting remote transfer",
		zap.String("remote_path", remotePath),
		zap.String("owner", o.owner.Username))

	if err := session.Send(ctx, remotePath, ev.Data); err != nil {
		// Partial data may be on the remote side; nothing was committed, so
		// the invariant holds. Leave the partial object to the cleanup pass.
		o.orphaned(remotePath, "transfer failed mid-stream")
		return xerr.NewCodeError(xerr.TransferTransportCode,
			fmt.Errorf("%w: %v", xerr.ErrTransferBroken, err))
	}

	o.state.current = StateCommitting
	return nil
}

func (o *Orchestrator) commit(ctx context.Context) (*models.Video, error) {
	video := &models.Video{
		Title:       o.state.title,
		Description: o.state.desc,
		UserID:      o.owner.ID,
		Username:    o.owner.Username,
		FileName:    o.state.fileName,
	}

	if err := o.store.CommitVideo(ctx, video); err != nil {
		// The transfer succeeded but the record did not land: the remote
		// object is orphaned. Enqueue it for collection instead of leaving
		// it behind silently.
		remotePath := transfer.RemotePath(o.remoteRoot, o.state.fileName)
		o.orphaned(remotePath, "record commit failed")
		if errors.Is(err, xerr.ErrDuplicateTitle) {
			// A concurrent upload of the same title committed first.
			return nil, o.fail(xerr.NewCodeError(xerr.DuplicateTitleCode, err))
		}
		return nil, o.fail(xerr.NewCodeError(xerr.PersistenceErrorCode,
			fmt.Errorf("%w: %v", xerr.ErrPersistence, err)))
	}

	o.state.current = StateDone
	logger.Info("Upload committed",
		zap.Uint64("video_id", video.ID),
		zap.String("file_name", video.FileName),
		zap.String("owner", o.owner.Username))
	return video, nil
}

func (o *Orchestrator) fail(err error) error {
	o.state.current = StateFailed
	return err
}

// StorageFileName derives the remote object name. The nanosecond timestamp
// keeps names unique even for concurrent uploads of the same original file
// by the same owner.
func StorageFileName(owner, original string) string {
	return fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), owner, original)
}
