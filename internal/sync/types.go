// Package sync reconciles game save slots between a local save directory and
// the archives kept in Drive. It decides, per slot, which side is
// authoritative by timestamp and runs the upload and download pipelines
// (backup, convert, pack, transfer, timestamp alignment, cleanup).
package sync

import (
	"errors"
	"time"
)

// Status is the outcome of comparing one slot.
type Status string

// Comparison statuses.
const (
	StatusInSync     Status = "in-sync"
	StatusLocalNewer Status = "local-newer"
	StatusCloudNewer Status = "cloud-newer"
	StatusLocalOnly  Status = "local-only"
	StatusCloudOnly  Status = "cloud-only"
)

// Action is the transfer a comparison recommends.
type Action string

// Recommended actions.
const (
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
	ActionNone     Action = "none"
)

// SyncTolerance is the band within which local and cloud timestamps are
// considered equal. Drive stores millisecond precision and filesystems vary.
const SyncTolerance = time.Second

// BulkSlots is the number of slots CompareAll inspects (slots 1..BulkSlots).
const BulkSlots = 4

// Sentinel errors.
var (
	ErrUnknownGame = errors.New("sync: unknown game")
	ErrNoSave      = errors.New("sync: no save found locally or in the cloud")
	ErrNoLocalSave = errors.New("sync: local save file not found")
	ErrInvalidSlot = errors.New("sync: slot number must be positive")
	ErrNotRegular  = errors.New("sync: local save path is not a regular file")
)

// CloudSlot is a slot entry found inside a cloud archive.
type CloudSlot struct {
	EntryName string `json:"entry_name"`
	Slot      int    `json:"slot"`
}

// CloudSave is one archive in a game's cloud folder together with the slot
// entries it contains. Re-derived on every listing, never cached.
type CloudSave struct {
	ArchiveID   string      `json:"archive_id"`
	ArchiveName string      `json:"archive_name"`
	DisplayName string      `json:"display_name"`
	ModifiedAt  time.Time   `json:"modified_at"`
	Size        int64       `json:"size"`
	Slots       []CloudSlot `json:"slots"`
	HasMeta     bool        `json:"has_meta"`
}

// HasSlot reports whether the archive carries an entry for slot and returns
// its entry name.
func (c CloudSave) HasSlot(slot int) (string, bool) {
	for _, s := range c.Slots {
		if s.Slot == slot {
			return s.EntryName, true
		}
	}

	return "", false
}

// CloudMatch identifies the archive entry a comparison was made against.
type CloudMatch struct {
	ArchiveID   string    `json:"archive_id"`
	ArchiveName string    `json:"archive_name"`
	EntryName   string    `json:"entry_name"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// Comparison is the verdict for one slot.
type Comparison struct {
	Game      string      `json:"game"`
	Slot      int         `json:"slot"`
	LocalPath string      `json:"local_path"`
	Status    Status      `json:"status"`
	Action    Action      `json:"action"`
	LocalTime time.Time   `json:"local_time,omitzero"`
	CloudTime time.Time   `json:"cloud_time,omitzero"`
	Match     *CloudMatch `json:"match,omitempty"`
}

// LocalSlot is a slot file found on disk.
type LocalSlot struct {
	Slot       int       `json:"slot"`
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
