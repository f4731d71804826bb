package gdrive

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*fakeDrive, *Store) {
	t.Helper()

	fd, srv := newFakeDrive(t)

	return fd, NewStore(newTestClient(t, srv.URL))
}

func TestGameFolder_CreatesLayoutOnce(t *testing.T) {
	fd, s := newTestStore(t)

	gameID, err := s.GameFolder(t.Context(), "Hollow Knight")
	require.NoError(t, err)

	rootID, err := s.RootFolder(t.Context())
	require.NoError(t, err)

	fd.mu.Lock()
	root := fd.files[rootID]
	game := fd.files[gameID]
	fd.mu.Unlock()

	assert.Equal(t, RootFolderName, root.meta.Name)
	assert.Equal(t, FolderMimeType, root.meta.MimeType)
	assert.Empty(t, root.meta.Parents)
	assert.Equal(t, "Hollow Knight", game.meta.Name)
	assert.Equal(t, []string{rootID}, game.meta.Parents)

	again, err := s.GameFolder(t.Context(), "Hollow Knight")
	require.NoError(t, err)
	assert.Equal(t, gameID, again)

	fd.mu.Lock()
	defer fd.mu.Unlock()
	assert.Len(t, fd.files, 2)
}

func TestRootFolder_Cached(t *testing.T) {
	fd, s := newTestStore(t)
	existing := fd.add(RootFolderName, FolderMimeType, "", nil, fd.now)

	for range 3 {
		id, err := s.RootFolder(t.Context())
		require.NoError(t, err)
		assert.Equal(t, existing, id)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()
	assert.Equal(t, 1, fd.lists)
}

func TestEnsureFolder_EscapesName(t *testing.T) {
	fd, s := newTestStore(t)
	root := fd.add(RootFolderName, FolderMimeType, "", nil, fd.now)
	want := fd.add(`Knight's \ Quest`, FolderMimeType, root, nil, fd.now)

	got, err := s.EnsureFolder(t.Context(), `Knight's \ Quest`, root)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	fd.mu.Lock()
	defer fd.mu.Unlock()
	assert.Contains(t, fd.requests[0], `name='Knight\'s \\ Quest'`)
}

func TestEnsureFolder_IgnoresFilesWithSameName(t *testing.T) {
	fd, s := newTestStore(t)
	fileID := fd.add(RootFolderName, ArchiveMimeType, "", []byte("x"), fd.now)

	id, err := s.RootFolder(t.Context())
	require.NoError(t, err)
	assert.NotEqual(t, fileID, id)
}

func TestEnsureFolder_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewStore(newTestClient(t, srv.URL))

	_, err := s.GameFolder(t.Context(), "Hollow Knight")
	require.ErrorIs(t, err, ErrFolderResolution)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListArchives_NewestFirstAcrossPages(t *testing.T) {
	fd, s := newTestStore(t)
	folder := fd.add("Hollow Knight", FolderMimeType, "", nil, fd.now)
	other := fd.add("Other", FolderMimeType, "", nil, fd.now)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fd.add("a.zip", ArchiveMimeType, folder, []byte("a"), base.Add(1*time.Hour))
	fd.add("c.zip", ArchiveMimeType, folder, []byte("c"), base.Add(3*time.Hour))
	fd.add("b.zip", ArchiveMimeType, folder, []byte("b"), base.Add(2*time.Hour))
	fd.add("d.zip", ArchiveMimeType, folder, []byte("d"), base.Add(4*time.Hour))
	fd.add("notes.txt", "text/plain", folder, []byte("n"), base.Add(5*time.Hour))
	fd.add("e.zip", ArchiveMimeType, other, []byte("e"), base.Add(6*time.Hour))
	fd.add("dir.zip", FolderMimeType, folder, nil, base.Add(7*time.Hour))

	files, err := s.ListArchives(t.Context(), folder, ".zip")
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"d.zip", "c.zip", "b.zip", "a.zip"}, names)
	assert.Equal(t, base.Add(4*time.Hour), files[0].ModifiedAt)
	assert.Equal(t, int64(1), files[0].Size)
	assert.NotEmpty(t, files[0].MD5)

	fd.mu.Lock()
	defer fd.mu.Unlock()
	// 5 hits (4 zips + the folder) at 2 per page.
	assert.Equal(t, 3, fd.lists)
}

func TestUploadThenDownload(t *testing.T) {
	fd, s := newTestStore(t)
	folder := fd.add("Hollow Knight", FolderMimeType, "", nil, fd.now)

	content := bytes.Repeat([]byte("save"), 1000)

	first, err := s.Upload(t.Context(), folder, "PC - 2025-05-01.zip", content)
	require.NoError(t, err)
	assert.Equal(t, "PC - 2025-05-01.zip", first.Name)
	assert.Equal(t, ArchiveMimeType, first.MimeType)
	assert.False(t, first.ModifiedAt.IsZero())

	// Same name again creates a second object.
	second, err := s.Upload(t.Context(), folder, "PC - 2025-05-01.zip", content)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	fd.mu.Lock()
	assert.Equal(t, []string{folder}, fd.files[first.ID].meta.Parents)
	fd.mu.Unlock()

	var buf bytes.Buffer

	n, err := s.Download(t.Context(), first.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())
}

func TestDownload_ChecksumMismatch(t *testing.T) {
	fd, s := newTestStore(t)
	id := fd.add("x.zip", ArchiveMimeType, "", []byte("payload"), fd.now)
	fd.badMD5 = true

	var buf bytes.Buffer

	_, err := s.Download(t.Context(), id, &buf)
	require.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDownload_NotFound(t *testing.T) {
	_, s := newTestStore(t)

	var buf bytes.Buffer

	_, err := s.Download(t.Context(), "missing", &buf)
	require.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpload_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewStore(newTestClient(t, srv.URL))

	_, err := s.Upload(t.Context(), "folder", "x.zip", []byte("x"))
	require.ErrorIs(t, err, ErrUpload)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestParseTimestamp(t *testing.T) {
	l := testLogger()

	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 678000000, time.UTC),
		parseTimestamp("2025-01-02T03:04:05.678Z", "id", l))
	assert.True(t, parseTimestamp("", "id", l).IsZero())
	assert.True(t, parseTimestamp("yesterday", "id", l).IsZero())
}
