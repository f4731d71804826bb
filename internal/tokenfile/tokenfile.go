// Package tokenfile reads and writes the persisted Google OAuth token. The
// on-disk shape is {access_token, refresh_token, expiry_date} with the expiry
// in epoch milliseconds, which keeps files written by the desktop app readable.
// This is a leaf package shared by auth/ and config/.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the token directory.
const DirPerms = 0o700

// File is the on-disk format.
type File struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"` // epoch ms; 0 = unknown
}

// FromToken converts an oauth2 token to the on-disk shape.
func FromToken(tok *oauth2.Token) File {
	f := File{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}

	if scope, ok := tok.Extra("scope").(string); ok {
		f.Scope = scope
	}

	if !tok.Expiry.IsZero() {
		f.ExpiryDate = tok.Expiry.UnixMilli()
	}

	return f
}

// Token converts the on-disk shape back to an oauth2 token.
func (f File) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  f.AccessToken,
		RefreshToken: f.RefreshToken,
		TokenType:    f.TokenType,
	}

	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}

	if f.ExpiryDate > 0 {
		tok.Expiry = time.UnixMilli(f.ExpiryDate)
	}

	return tok
}

// Load reads a saved token. Returns (nil, nil) if the file does not exist.
func Load(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var tf File
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if tf.AccessToken == "" && tf.RefreshToken == "" {
		return nil, fmt.Errorf("tokenfile: %s has no access or refresh token (re-login required)", path)
	}

	return tf.Token(), nil
}

// Save writes the token atomically (write-to-temp + rename) with 0600
// permissions. Never logs token values.
func Save(path string, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("tokenfile: nil token")
	}

	data, err := json.MarshalIndent(FromToken(tok), "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the token file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}

// Exists reports whether a token file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
