package sync

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/stagstation/stagsync/internal/archive"
	"github.com/stagstation/stagsync/internal/gdrive"
	"github.com/stagstation/stagsync/internal/history"
	"github.com/stagstation/stagsync/internal/savecodec"
)

const (
	testGame   = "hollowknight"
	testFolder = "Hollow Knight"
	saveDir    = "/saves"
	backupDir  = "/backups"
	scratchDir = "/scratch"
)

var cloudEpoch = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory RemoteStore.
type fakeStore struct {
	mu        stdsync.Mutex
	nextID    int
	folders   map[string]string
	objects   map[string]*fakeObject
	now       time.Time
	failIDs   map[string]bool
	downloads int
	uploadErr error
}

type fakeObject struct {
	file     gdrive.File
	folderID string
	content  []byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		folders: make(map[string]string),
		objects: make(map[string]*fakeObject),
		now:     cloudEpoch,
		failIDs: make(map[string]bool),
	}
}

func (s *fakeStore) folderLocked(name string) string {
	if id, ok := s.folders[name]; ok {
		return id
	}

	s.nextID++
	id := fmt.Sprintf("folder-%d", s.nextID)
	s.folders[name] = id

	return id
}

// put stores an object in folderName directly.
func (s *fakeStore) put(folderName, name string, modified time.Time, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putLocked(s.folderLocked(folderName), name, modified, content)
}

func (s *fakeStore) putLocked(folderID, name string, modified time.Time, content []byte) string {
	s.nextID++
	id := fmt.Sprintf("id-%d", s.nextID)

	s.objects[id] = &fakeObject{
		file: gdrive.File{
			ID:         id,
			Name:       name,
			MimeType:   gdrive.ArchiveMimeType,
			ModifiedAt: modified,
			Size:       int64(len(content)),
		},
		folderID: folderID,
		content:  content,
	}

	return id
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.objects)
}

func (s *fakeStore) content(id string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.objects[id].content
}

func (s *fakeStore) GameFolder(_ context.Context, folderName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.folderLocked(folderName), nil
}

func (s *fakeStore) ListArchives(_ context.Context, folderID, nameContains string) ([]gdrive.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []gdrive.File

	for _, o := range s.objects {
		if o.folderID == folderID && strings.Contains(o.file.Name, nameContains) {
			out = append(out, o.file)
		}
	}

	slices.SortFunc(out, func(a, b gdrive.File) int { return b.ModifiedAt.Compare(a.ModifiedAt) })

	return out, nil
}

func (s *fakeStore) GetFile(_ context.Context, fileID string) (*gdrive.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gdrive.ErrNotFound, fileID)
	}

	f := o.file

	return &f, nil
}

func (s *fakeStore) Upload(_ context.Context, folderID, name string, content []byte) (*gdrive.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploadErr != nil {
		return nil, s.uploadErr
	}

	s.now = s.now.Add(time.Minute + 123*time.Millisecond)
	id := s.putLocked(folderID, name, s.now, slices.Clone(content))
	f := s.objects[id].file

	return &f, nil
}

func (s *fakeStore) Download(_ context.Context, fileID string, w io.Writer) (int64, error) {
	s.mu.Lock()
	s.downloads++
	o, ok := s.objects[fileID]
	fail := s.failIDs[fileID]
	s.mu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: %w: %s", gdrive.ErrDownload, gdrive.ErrNotFound, fileID)
	}

	if fail {
		return 0, fmt.Errorf("%w: %w", gdrive.ErrDownload, gdrive.ErrServerError)
	}

	n, err := w.Write(o.content)

	return int64(n), err
}

// recordingJournal captures recorded transfers.
type recordingJournal struct {
	mu      stdsync.Mutex
	entries []history.Entry
	err     error
}

func (j *recordingJournal) Record(_ context.Context, e history.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return j.err
	}

	j.entries = append(j.entries, e)

	return nil
}

func (j *recordingJournal) recorded() []history.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	return slices.Clone(j.entries)
}

type testEnv struct {
	engine  *Engine
	fs      afero.Fs
	clock   *clockwork.FakeClock
	journal *recordingJournal
}

func testSettings() Settings {
	return Settings{
		Games:         map[string]string{testGame: testFolder},
		CreateBackups: true,
		BackupDir:     backupDir,
		ScratchDir:    scratchDir,
		ArchiveFormat: FormatHost,
	}
}

func newTestEnv(t *testing.T, store RemoteStore, mutate ...func(*Settings)) *testEnv {
	t.Helper()

	settings := testSettings()
	for _, m := range mutate {
		m(&settings)
	}

	env := &testEnv{
		fs:      afero.NewMemMapFs(),
		clock:   clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 9, 30, 15, 0, time.Local)),
		journal: &recordingJournal{},
	}

	env.engine = NewEngine(store, settings, testLogger(),
		WithFs(env.fs), WithClock(env.clock), WithJournal(env.journal))

	return env
}

// writeLocal writes a local slot file with the given mtime.
func (env *testEnv) writeLocal(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()

	require.NoError(t, afero.WriteFile(env.fs, path, []byte(content), 0o644))
	require.NoError(t, env.fs.Chtimes(path, mtime, mtime))
}

func (env *testEnv) mtime(t *testing.T, path string) time.Time {
	t.Helper()

	info, err := env.fs.Stat(path)
	require.NoError(t, err)

	return info.ModTime()
}

func (env *testEnv) dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	infos, err := afero.ReadDir(env.fs, dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(infos))
	for _, i := range infos {
		names = append(names, i.Name())
	}

	return names
}

// hostSlot encodes plain into host form the way archives store it.
func hostSlot(t *testing.T, plain string) []byte {
	t.Helper()

	b, err := savecodec.Wrap([]byte(plain))
	require.NoError(t, err)

	return b
}

// packArchive builds an archive holding the given host-form slots.
func packArchive(t *testing.T, meta []byte, slots map[int]string) []byte {
	t.Helper()

	files := make([]archive.SlotFile, 0, len(slots))
	for slot, plain := range slots {
		files = append(files, archive.SlotFile{Slot: slot, Data: hostSlot(t, plain)})
	}

	data, err := archive.Pack(files, meta, cloudEpoch)
	require.NoError(t, err)

	return data
}

func slotPathIn(dir string, slot int) string {
	return dir + "/" + archive.SlotEntryName(slot)
}

// zipWith builds a container with arbitrary entry names.
func zipWith(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)

		_, err = w.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())

	return buf.Bytes()
}

// failingFs fails every mutation under prefix.
type failingFs struct {
	afero.Fs
	prefix string
}

var errInjected = errors.New("injected filesystem failure")

func (f *failingFs) blocked(name string) bool {
	return strings.HasPrefix(name, f.prefix)
}

func (f *failingFs) MkdirAll(path string, perm os.FileMode) error {
	if f.blocked(path) {
		return &os.PathError{Op: "mkdir", Path: path, Err: errInjected}
	}

	return f.Fs.MkdirAll(path, perm)
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.blocked(name) && flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: errInjected}
	}

	return f.Fs.OpenFile(name, flag, perm)
}

func (f *failingFs) Rename(oldname, newname string) error {
	if f.blocked(newname) {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errInjected}
	}

	return f.Fs.Rename(oldname, newname)
}
