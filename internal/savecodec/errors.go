// Package savecodec converts save files between the encrypted, framed host
// representation and the decrypted portable representation. The byte layout
// is owned by the game's host runtime and must be reproduced exactly: a fixed
// binary-serializer header, a 7-bit length prefix, base64 of AES-256-ECB
// ciphertext with PKCS7 padding, and a single trailer byte.
//
// Everything in this package is pure: no file or network access.
package savecodec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Use errors.Is(err, savecodec.ErrInvalidPadding) to check.
var (
	ErrMalformedInput        = errors.New("savecodec: malformed input")
	ErrMalformedHeader       = errors.New("savecodec: malformed header")
	ErrMalformedLengthPrefix = errors.New("savecodec: malformed length prefix")
	ErrBase64Decode          = errors.New("savecodec: base64 decode failed")
	ErrInvalidBlockSize      = errors.New("savecodec: invalid block size")
	ErrInvalidPadding        = errors.New("savecodec: invalid padding")
)

// tailDumpLen is how many trailing bytes are hex-dumped into padding errors.
const tailDumpLen = 20

// Error is a structured codec failure. Kind is one of the sentinel errors
// above; the remaining fields carry whatever diagnostic context applies to
// that kind and are zero otherwise.
type Error struct {
	Kind     error
	Detail   string
	Length   int    // length of the buffer being examined at the failure point
	PadValue int    // offending PKCS7 pad value (ErrInvalidPadding only)
	Tail     []byte // last bytes of the decrypted buffer (ErrInvalidPadding only)
	Cause    error  // underlying library error, if any
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Kind.Error())

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Length > 0 {
		fmt.Fprintf(&b, " (length %d)", e.Length)
	}

	if errors.Is(e.Kind, ErrInvalidPadding) {
		fmt.Fprintf(&b, " (pad value %d, last bytes %s)", e.PadValue, hex.EncodeToString(e.Tail))
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Cause}
}

func newError(kind error, length int, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Length: length,
	}
}

// tail returns a copy of the last tailDumpLen bytes of b.
func tail(b []byte) []byte {
	start := max(len(b)-tailDumpLen, 0)

	return append([]byte(nil), b[start:]...)
}
