package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	drive "google.golang.org/api/drive/v3"
)

// FolderMimeType marks Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// RootFolderName is the top-level folder the save manager keeps archives under.
const RootFolderName = "JKSV"

// listPageSize is the pageSize for file listings (Drive allows up to 1000).
const listPageSize = 100

// fileFields is the partial-response selector for a single file.
const fileFields = "id,name,mimeType,modifiedTime,size,md5Checksum"

// File is a normalized Drive object.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	MD5        string    `json:"md5,omitempty"`
}

// IsFolder reports whether f is a folder.
func (f File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// toFile normalizes the Drive wire type.
func toFile(d *drive.File, logger *slog.Logger) File {
	return File{
		ID:         d.Id,
		Name:       d.Name,
		MimeType:   d.MimeType,
		ModifiedAt: parseTimestamp(d.ModifiedTime, d.Id, logger),
		Size:       d.Size,
		MD5:        d.Md5Checksum,
	}
}

// parseTimestamp parses Drive's RFC 3339 modifiedTime. An empty or invalid
// value is replaced by the zero time and logged; the comparison logic treats
// the zero time as infinitely old.
func parseTimestamp(raw, fileID string, logger *slog.Logger) time.Time {
	if raw == "" {
		logger.Warn("file has no modifiedTime", slog.String("file_id", fileID))
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid modifiedTime",
			slog.String("file_id", fileID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t.UTC()
}

// escapeQuery escapes a literal for use inside single quotes in a Drive query.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// Store resolves the save manager's folder layout on top of a Client. The
// root folder id is cached for the lifetime of the Store only.
type Store struct {
	*Client

	mu     sync.Mutex
	rootID string
}

// NewStore wraps c.
func NewStore(c *Client) *Store {
	return &Store{Client: c}
}

// listFiles runs a query and follows pagination.
func (c *Client) listFiles(ctx context.Context, q, orderBy string) ([]File, error) {
	query := url.Values{
		"q":        {q},
		"fields":   {"nextPageToken,files(" + fileFields + ")"},
		"pageSize": {fmt.Sprint(listPageSize)},
		"spaces":   {"drive"},
	}

	if orderBy != "" {
		query.Set("orderBy", orderBy)
	}

	var out []File

	for {
		resp, err := c.do(ctx, request{method: http.MethodGet, url: c.baseURL + "/files", query: query})
		if err != nil {
			return nil, err
		}

		var page drive.FileList
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()

		if decodeErr != nil {
			return nil, fmt.Errorf("gdrive: decoding file list: %w", decodeErr)
		}

		for _, f := range page.Files {
			out = append(out, toFile(f, c.logger))
		}

		if page.NextPageToken == "" {
			return out, nil
		}

		query.Set("pageToken", page.NextPageToken)
	}
}

// GetFile fetches metadata for a single object.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.baseURL + "/files/" + url.PathEscape(fileID),
		query:  url.Values{"fields": {fileFields}},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var df drive.File
	if err := json.NewDecoder(resp.Body).Decode(&df); err != nil {
		return nil, fmt.Errorf("gdrive: decoding file: %w", err)
	}

	f := toFile(&df, c.logger)

	return &f, nil
}

// EnsureFolder returns the id of the folder called name under parentID,
// creating it when absent. An empty parentID searches the whole drive and
// creates at the top level. When several folders share the name, the first
// one Drive returns wins.
func (c *Client) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	found, err := c.listFiles(ctx, q, "")
	if err != nil {
		return "", fmt.Errorf("%w: looking up %q: %w", ErrFolderResolution, name, err)
	}

	if len(found) > 0 {
		if len(found) > 1 {
			c.logger.Warn("multiple folders share a name, using the first",
				slog.String("name", name),
				slog.Int("count", len(found)),
			)
		}

		return found[0].ID, nil
	}

	meta := &drive.File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("%w: encoding folder %q: %w", ErrFolderResolution, name, err)
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		url:         c.baseURL + "/files",
		query:       url.Values{"fields": {fileFields}},
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating %q: %w", ErrFolderResolution, name, err)
	}
	defer resp.Body.Close()

	var created drive.File
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: decoding created folder %q: %w", ErrFolderResolution, name, err)
	}

	c.logger.Info("created folder",
		slog.String("name", name),
		slog.String("id", created.Id),
	)

	return created.Id, nil
}

// RootFolder returns the JKSV folder id, creating it on first use.
func (s *Store) RootFolder(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rootID != "" {
		return s.rootID, nil
	}

	id, err := s.EnsureFolder(ctx, RootFolderName, "")
	if err != nil {
		return "", err
	}

	s.rootID = id

	return id, nil
}

// GameFolder returns the id of the named game folder under the root.
func (s *Store) GameFolder(ctx context.Context, folderName string) (string, error) {
	root, err := s.RootFolder(ctx)
	if err != nil {
		return "", err
	}

	return s.EnsureFolder(ctx, folderName, root)
}

// ListArchives lists non-trashed files in folderID whose name contains
// nameContains, newest first.
func (s *Store) ListArchives(ctx context.Context, folderID, nameContains string) ([]File, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))
	if nameContains != "" {
		q += fmt.Sprintf(" and name contains '%s'", escapeQuery(nameContains))
	}

	files, err := s.listFiles(ctx, q, "modifiedTime desc")
	if err != nil {
		return nil, fmt.Errorf("gdrive: listing archives: %w", err)
	}

	// Folders can match a name filter too.
	out := files[:0]
	for _, f := range files {
		if !f.IsFolder() {
			out = append(out, f)
		}
	}

	return out, nil
}
