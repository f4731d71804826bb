// Package archive packs and unpacks the zip containers that the save manager
// stores in the cloud. A container holds flat entries named user<N>.dat, one
// per save slot, plus an optional metadata side-car that the console tooling
// needs to restore the save. No directories are written.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"time"
)

// MetaEntry is the reserved entry name of the metadata side-car.
const MetaEntry = ".nx_save_meta.bin"

// maxEntrySize bounds how much a single entry may expand to. Save files are a
// few megabytes at most; anything larger is a corrupt or hostile archive.
const maxEntrySize = 256 << 20

// Sentinel errors.
var (
	ErrSlotNotFound = errors.New("archive: slot not found in archive")
	ErrInvalidSlot  = errors.New("archive: slot number must be positive")
	ErrCorrupt      = errors.New("archive: corrupt container")
	ErrEntryTooBig  = errors.New("archive: entry exceeds size limit")
)

var slotEntryRe = regexp.MustCompile(`(?i)^user(\d+)\.dat$`)

// SlotEntryName returns the canonical entry name for a slot number.
func SlotEntryName(slot int) string {
	return "user" + strconv.Itoa(slot) + ".dat"
}

// ParseSlotEntry reports the slot number encoded in an entry name. Matching
// is case-insensitive because containers written by other tools are not
// consistent about it.
func ParseSlotEntry(name string) (int, bool) {
	m := slotEntryRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}

// SlotFile is one slot payload destined for a container.
type SlotFile struct {
	Slot int
	Data []byte
}

// SlotEntry describes a slot entry found in a container.
type SlotEntry struct {
	Name string
	Slot int
}

// Pack builds a zip container from the given slots and optional metadata
// (nil meta means no side-car). modified stamps every entry.
func Pack(slots []SlotFile, meta []byte, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	seen := make(map[int]bool, len(slots))

	for _, s := range slots {
		if s.Slot <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, s.Slot)
		}

		if seen[s.Slot] {
			return nil, fmt.Errorf("archive: duplicate slot %d", s.Slot)
		}

		seen[s.Slot] = true

		if err := writeEntry(zw, SlotEntryName(s.Slot), s.Data, modified); err != nil {
			return nil, err
		}
	}

	if meta != nil {
		if err := writeEntry(zw, MetaEntry, meta, modified); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: finishing container: %w", err)
	}

	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	}

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive: creating entry %s: %w", name, err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("archive: writing entry %s: %w", name, err)
	}

	return nil
}

// Archive is an opened, read-only container.
type Archive struct {
	zr *zip.Reader
}

// Open parses container bytes.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return &Archive{zr: zr}, nil
}

// Names lists every entry name in container order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		names = append(names, f.Name)
	}

	return names
}

// Slots enumerates the slot entries, sorted by slot number.
func (a *Archive) Slots() []SlotEntry {
	var out []SlotEntry

	for _, f := range a.zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		if n, ok := ParseSlotEntry(f.Name); ok {
			out = append(out, SlotEntry{Name: f.Name, Slot: n})
		}
	}

	slices.SortStableFunc(out, func(x, y SlotEntry) int { return x.Slot - y.Slot })

	return out
}

// HasEntry reports whether an entry with exactly this name exists.
func (a *Archive) HasEntry(name string) bool {
	return a.find(name) != nil
}

// HasMeta reports whether the metadata side-car is present.
func (a *Archive) HasMeta() bool {
	return a.HasEntry(MetaEntry)
}

// Entry reads the named entry. A missing entry returns ErrSlotNotFound when the
// name is a slot entry, and fs-style not-found otherwise.
func (a *Archive) Entry(name string) ([]byte, error) {
	f := a.find(name)
	if f == nil {
		if _, ok := ParseSlotEntry(name); ok {
			return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, name)
		}

		return nil, fmt.Errorf("archive: entry %s not found", name)
	}

	return readEntry(f)
}

// Slot reads the canonical entry for a slot number.
func (a *Archive) Slot(slot int) ([]byte, error) {
	if slot <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}

	return a.Entry(SlotEntryName(slot))
}

// Meta returns the metadata side-car, or (nil, false) when the container has
// none. A side-car that exists but cannot be read is reported as an error.
func (a *Archive) Meta() ([]byte, bool, error) {
	f := a.find(MetaEntry)
	if f == nil {
		return nil, false, nil
	}

	data, err := readEntry(f)
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

func (a *Archive) find(name string) *zip.File {
	for _, f := range a.zr.File {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrCorrupt, f.Name, err)
	}

	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooBig, f.Name)
	}

	return data, nil
}
