package service

import (
	"context"
	"errors"
	"io/fs"

	"github.com/stagstation/stagsync/internal/archive"
	"github.com/stagstation/stagsync/internal/auth"
	"github.com/stagstation/stagsync/internal/gdrive"
	"github.com/stagstation/stagsync/internal/savecodec"
	savesync "github.com/stagstation/stagsync/internal/sync"
)

// Kind is a stable, machine-readable error category.
type Kind string

// Error kinds carried in Result.Kind.
const (
	KindInvalidArgument Kind = "invalid_argument"
	KindCodec           Kind = "codec"
	KindUnknownGame     Kind = "unknown_game"
	KindNoSave          Kind = "no_save"
	KindNotFound        Kind = "not_found"
	KindSlotNotFound    Kind = "slot_not_found"
	KindCorruptArchive  Kind = "corrupt_archive"
	KindNoCredentials   Kind = "no_credentials"
	KindNotLoggedIn     Kind = "not_logged_in"
	KindAuthInProgress  Kind = "auth_in_progress"
	KindNoPendingAuth   Kind = "no_pending_auth"
	KindAuthExpired     Kind = "auth_expired"
	KindAuthFailed      Kind = "auth_failed"
	KindUnauthorized    Kind = "unauthorized"
	KindRemote          Kind = "remote"
	KindCanceled        Kind = "canceled"
	KindIO              Kind = "io"
	KindInternal        Kind = "internal"
)

// ErrInvalidArgument marks caller mistakes caught before any work starts.
var ErrInvalidArgument = errors.New("service: invalid argument")

// Result is the uniform envelope every Service call returns.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`

	err error
}

// Err returns the underlying error of a failed result, or nil.
func (r Result) Err() error {
	return r.err
}

func success(data any) Result {
	return Result{Success: true, Data: data}
}

func failure(err error) Result {
	return Result{Error: err.Error(), Kind: KindOf(err), err: err}
}

// kindTable is checked in order; the first sentinel that matches wins.
var kindTable = []struct {
	target error
	kind   Kind
}{
	{ErrInvalidArgument, KindInvalidArgument},
	{savesync.ErrInvalidSlot, KindInvalidArgument},
	{archive.ErrInvalidSlot, KindInvalidArgument},
	{savecodec.ErrMalformedInput, KindCodec},
	{savecodec.ErrMalformedHeader, KindCodec},
	{savecodec.ErrMalformedLengthPrefix, KindCodec},
	{savecodec.ErrBase64Decode, KindCodec},
	{savecodec.ErrInvalidBlockSize, KindCodec},
	{savecodec.ErrInvalidPadding, KindCodec},
	{savesync.ErrUnknownGame, KindUnknownGame},
	{savesync.ErrNoSave, KindNoSave},
	{archive.ErrSlotNotFound, KindSlotNotFound},
	{archive.ErrCorrupt, KindCorruptArchive},
	{auth.ErrNoCredentials, KindNoCredentials},
	{auth.ErrNotLoggedIn, KindNotLoggedIn},
	{auth.ErrAuthInProgress, KindAuthInProgress},
	{auth.ErrNoPendingAuth, KindNoPendingAuth},
	{auth.ErrAuthExpired, KindAuthExpired},
	{auth.ErrAuthFailed, KindAuthFailed},
	{gdrive.ErrUnauthorized, KindUnauthorized},
	{gdrive.ErrNotFound, KindNotFound},
	{savesync.ErrNoLocalSave, KindNotFound},
	{fs.ErrNotExist, KindNotFound},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
	{gdrive.ErrFolderResolution, KindRemote},
	{gdrive.ErrUpload, KindRemote},
	{gdrive.ErrDownload, KindRemote},
	{gdrive.ErrThrottled, KindRemote},
	{gdrive.ErrServerError, KindRemote},
	{gdrive.ErrForbidden, KindRemote},
	{gdrive.ErrBadRequest, KindRemote},
	{savesync.ErrNotRegular, KindIO},
	{fs.ErrPermission, KindIO},
}

// KindOf classifies err. Unrecognized errors are KindIO when they came from
// the filesystem and KindInternal otherwise.
func KindOf(err error) Kind {
	for _, k := range kindTable {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return KindIO
	}

	return KindInternal
}
