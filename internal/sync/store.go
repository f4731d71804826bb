package sync

import (
	"context"
	"io"

	"github.com/stagstation/stagsync/internal/gdrive"
)

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=sync

// RemoteStore is the slice of the Drive store the engine needs. Satisfied by
// *gdrive.Store.
type RemoteStore interface {
	GameFolder(ctx context.Context, folderName string) (string, error)
	ListArchives(ctx context.Context, folderID, nameContains string) ([]gdrive.File, error)
	GetFile(ctx context.Context, fileID string) (*gdrive.File, error)
	Upload(ctx context.Context, folderID, name string, content []byte) (*gdrive.File, error)
	Download(ctx context.Context, fileID string, w io.Writer) (int64, error)
}
