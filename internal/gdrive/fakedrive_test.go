package gdrive

import (
	"crypto/md5" //nolint:gosec // matches Drive's checksum
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"
)

// fakeDrive is an in-memory Drive v3 server covering the calls Store makes.
// Listings are paginated two per page to exercise pageToken handling.
type fakeDrive struct {
	t *testing.T

	mu       sync.Mutex
	nextID   int
	files    map[string]*fakeObject
	now      time.Time
	lists    int
	badMD5   bool
	requests []string
}

type fakeObject struct {
	meta    drive.File
	content []byte
}

const fakePageSize = 2

func newFakeDrive(t *testing.T) (*fakeDrive, *httptest.Server) {
	t.Helper()

	fd := &fakeDrive{
		t:     t,
		files: make(map[string]*fakeObject),
		now:   time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", fd.handleList)
	mux.HandleFunc("POST /files", fd.handleCreateFolder)
	mux.HandleFunc("GET /files/{id}", fd.handleGet)
	mux.HandleFunc("POST /upload/files", fd.handleUpload)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return fd, srv
}

// add stores an object directly, bypassing the API.
func (fd *fakeDrive) add(name, mimeType, parent string, content []byte, modified time.Time) string {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	return fd.addLocked(name, mimeType, parent, content, modified)
}

func (fd *fakeDrive) addLocked(name, mimeType, parent string, content []byte, modified time.Time) string {
	fd.nextID++
	id := fmt.Sprintf("id-%d", fd.nextID)

	sum := md5.Sum(content) //nolint:gosec // checksum

	obj := &fakeObject{
		meta: drive.File{
			Id:           id,
			Name:         name,
			MimeType:     mimeType,
			ModifiedTime: modified.Format(time.RFC3339Nano),
			Size:         int64(len(content)),
		},
		content: content,
	}

	if mimeType != FolderMimeType {
		obj.meta.Md5Checksum = hex.EncodeToString(sum[:])
	}

	if parent != "" {
		obj.meta.Parents = []string{parent}
	}

	fd.files[id] = obj

	return id
}

var (
	qName     = regexp.MustCompile(`name='((?:[^'\\]|\\.)*)'`)
	qContains = regexp.MustCompile(`name contains '((?:[^'\\]|\\.)*)'`)
	qParent   = regexp.MustCompile(`'((?:[^'\\]|\\.)*)' in parents`)
	qMime     = regexp.MustCompile(`mimeType='([^']*)'`)
)

func unescape(s string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}

func (fd *fakeDrive) matches(q string, obj *fakeObject) bool {
	if m := qName.FindStringSubmatch(q); m != nil && obj.meta.Name != unescape(m[1]) {
		return false
	}

	if m := qContains.FindStringSubmatch(q); m != nil && !strings.Contains(obj.meta.Name, unescape(m[1])) {
		return false
	}

	if m := qParent.FindStringSubmatch(q); m != nil && !slices.Contains(obj.meta.Parents, unescape(m[1])) {
		return false
	}

	if m := qMime.FindStringSubmatch(q); m != nil && obj.meta.MimeType != m[1] {
		return false
	}

	return true
}

func (fd *fakeDrive) handleList(w http.ResponseWriter, r *http.Request) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.lists++
	fd.requests = append(fd.requests, r.URL.Query().Get("q"))

	q := r.URL.Query().Get("q")

	var hits []drive.File

	for _, obj := range fd.files {
		if fd.matches(q, obj) {
			hits = append(hits, obj.meta)
		}
	}

	if r.URL.Query().Get("orderBy") == "modifiedTime desc" {
		slices.SortFunc(hits, func(a, b drive.File) int { return strings.Compare(b.ModifiedTime, a.ModifiedTime) })
	} else {
		slices.SortFunc(hits, func(a, b drive.File) int { return strings.Compare(a.Id, b.Id) })
	}

	start := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		_, err := fmt.Sscanf(tok, "page-%d", &start)
		require.NoError(fd.t, err)
	}

	end := min(start+fakePageSize, len(hits))

	page := drive.FileList{}
	for i := start; i < end; i++ {
		page.Files = append(page.Files, &hits[i])
	}

	if end < len(hits) {
		page.NextPageToken = fmt.Sprintf("page-%d", end)
	}

	writeJSON(w, page)
}

func (fd *fakeDrive) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var meta drive.File
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	parent := ""
	if len(meta.Parents) > 0 {
		parent = meta.Parents[0]
	}

	id := fd.addLocked(meta.Name, meta.MimeType, parent, nil, fd.now)
	writeJSON(w, fd.files[id].meta)
}

func (fd *fakeDrive) handleGet(w http.ResponseWriter, r *http.Request) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	obj, ok := fd.files[r.PathValue("id")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"File not found","errors":[{"reason":"notFound"}]}}`)

		return
	}

	if r.URL.Query().Get("alt") == "media" {
		data := obj.content
		if fd.badMD5 {
			data = append([]byte("corrupt"), data...)
		}

		_, _ = w.Write(data)

		return
	}

	writeJSON(w, obj.meta)
}

func (fd *fakeDrive) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uploadType") != "multipart" {
		http.Error(w, "want multipart", http.StatusBadRequest)
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/related" {
		http.Error(w, "bad content type", http.StatusBadRequest)
		return
	}

	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	require.NoError(fd.t, err)

	var meta drive.File
	require.NoError(fd.t, json.NewDecoder(metaPart).Decode(&meta))

	contentPart, err := mr.NextPart()
	require.NoError(fd.t, err)

	content, err := io.ReadAll(contentPart)
	require.NoError(fd.t, err)

	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.now = fd.now.Add(time.Minute)
	id := fd.addLocked(meta.Name, meta.MimeType, meta.Parents[0], content, fd.now)
	writeJSON(w, fd.files[id].meta)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
