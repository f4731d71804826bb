package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stagstation/stagsync/internal/config"
	"github.com/stagstation/stagsync/internal/gdrive"
)

const testGame = "hollowknight"

var storeEpoch = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Resolved {
	t.Helper()

	dir := t.TempDir()

	return &config.Resolved{
		CredentialsPath: filepath.Join(dir, "credentials.json"),
		TokenPath:       filepath.Join(dir, ".stagstation", "google-tokens.json"),
		CreateBackups:   true,
		BackupDir:       filepath.Join(dir, "backups"),
		ScratchDir:      filepath.Join(dir, "scratch"),
		ArchiveFormat:   "host",
		HistoryPath:     filepath.Join(dir, "data", "history.db"),
		Meta:            config.MetaConfig{Enabled: true, Mode: "auto"},
		Games: map[string]config.GameConfig{
			testGame:   {Folder: "Hollow Knight", SaveDir: filepath.Join(dir, "saves")},
			"silksong": {Folder: "Hollow Knight Silksong"},
		},
		LogLevel: "debug",
		Network: config.ResolvedNetwork{
			RequestsPerSecond: 10,
			Burst:             10,
			Timeout:           time.Minute,
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// memStore is an in-memory RemoteStore.
type memStore struct {
	mu      sync.Mutex
	nextID  int
	now     time.Time
	objects []*memObject
}

type memObject struct {
	file    gdrive.File
	folder  string
	content []byte
}

func newMemStore() *memStore {
	return &memStore{now: storeEpoch}
}

func (m *memStore) GameFolder(_ context.Context, folderName string) (string, error) {
	return "folder:" + folderName, nil
}

func (m *memStore) ListArchives(_ context.Context, folderID, nameContains string) ([]gdrive.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []gdrive.File

	for _, o := range m.objects {
		if o.folder == folderID && strings.Contains(o.file.Name, nameContains) {
			out = append(out, o.file)
		}
	}

	slices.SortFunc(out, func(a, b gdrive.File) int { return b.ModifiedAt.Compare(a.ModifiedAt) })

	return out, nil
}

func (m *memStore) find(id string) (*memObject, error) {
	for _, o := range m.objects {
		if o.file.ID == id {
			return o, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", gdrive.ErrNotFound, id)
}

func (m *memStore) GetFile(_ context.Context, fileID string) (*gdrive.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, err := m.find(fileID)
	if err != nil {
		return nil, err
	}

	f := o.file

	return &f, nil
}

func (m *memStore) Upload(_ context.Context, folderID, name string, content []byte) (*gdrive.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.now = m.now.Add(time.Minute)

	o := &memObject{
		file: gdrive.File{
			ID:         fmt.Sprintf("file-%d", m.nextID),
			Name:       name,
			MimeType:   gdrive.ArchiveMimeType,
			ModifiedAt: m.now,
			Size:       int64(len(content)),
		},
		folder:  folderID,
		content: bytes.Clone(content),
	}
	m.objects = append(m.objects, o)

	f := o.file

	return &f, nil
}

func (m *memStore) Download(_ context.Context, fileID string, w io.Writer) (int64, error) {
	m.mu.Lock()
	o, err := m.find(fileID)
	m.mu.Unlock()

	if err != nil {
		return 0, fmt.Errorf("%w: %w", gdrive.ErrDownload, err)
	}

	n, err := w.Write(o.content)

	return int64(n), err
}

// panicStore blows up on the first call.
type panicStore struct {
	memStore
}

func (*panicStore) GameFolder(context.Context, string) (string, error) {
	panic("folder lookup exploded")
}
