package gdrive

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // Drive reports MD5; used for integrity, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	drive "google.golang.org/api/drive/v3"
)

// ArchiveMimeType is the content type used for uploaded archives.
const ArchiveMimeType = "application/zip"

// Upload always creates a new object named name in folderID. Existing objects
// with the same name are left alone; Drive allows duplicates.
func (s *Store) Upload(ctx context.Context, folderID, name string, content []byte) (*File, error) {
	s.logger.Info("uploading archive",
		slog.String("name", name),
		slog.String("folder_id", folderID),
		slog.Int("bytes", len(content)),
	)

	body, contentType, err := multipartBody(&drive.File{
		Name:     name,
		MimeType: ArchiveMimeType,
		Parents:  []string{folderID},
	}, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpload, name, err)
	}

	resp, err := s.do(ctx, request{
		method:      http.MethodPost,
		url:         s.uploadURL + "/files",
		query:       url.Values{"uploadType": {"multipart"}, "fields": {fileFields}},
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpload, name, err)
	}
	defer resp.Body.Close()

	var created drive.File
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: decoding upload response: %w", ErrUpload, err)
	}

	f := toFile(&created, s.logger)

	s.logger.Info("upload complete",
		slog.String("name", f.Name),
		slog.String("id", f.ID),
		slog.Time("modified", f.ModifiedAt),
	)

	return &f, nil
}

// multipartBody builds a multipart/related body: JSON metadata, then content.
func multipartBody(meta *drive.File, content []byte) ([]byte, string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("encoding metadata: %w", err)
	}

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	parts := []struct {
		contentType string
		data        []byte
	}{
		{"application/json; charset=UTF-8", metaJSON},
		{meta.MimeType, content},
	}

	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, "", fmt.Errorf("creating part: %w", err)
		}

		if _, err := w.Write(p.data); err != nil {
			return nil, "", fmt.Errorf("writing part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return buf.Bytes(), "multipart/related; boundary=" + mw.Boundary(), nil
}

// Download streams an object's raw bytes to w and returns the byte count.
// When Drive reports an MD5 for the object, the streamed bytes are verified
// against it and a mismatch fails with ErrChecksumMismatch.
func (s *Store) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	meta, err := s.GetFile(ctx, fileID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrDownload, fileID, err)
	}

	resp, err := s.do(ctx, request{
		method: http.MethodGet,
		url:    s.baseURL + "/files/" + url.PathEscape(fileID),
		query:  url.Values{"alt": {"media"}},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrDownload, fileID, err)
	}
	defer resp.Body.Close()

	h := md5.New() //nolint:gosec // see import

	n, err := io.Copy(io.MultiWriter(w, h), resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: %s: streaming: %w", ErrDownload, fileID, err)
	}

	if meta.MD5 != "" {
		if got := hex.EncodeToString(h.Sum(nil)); got != meta.MD5 {
			return n, fmt.Errorf("%w: %w: %s: expected md5 %s, got %s",
				ErrDownload, ErrChecksumMismatch, fileID, meta.MD5, got)
		}
	}

	s.logger.Debug("download complete",
		slog.String("file_id", fileID),
		slog.String("name", meta.Name),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
