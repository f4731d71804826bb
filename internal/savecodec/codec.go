package savecodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
)

// Wrap converts portable save bytes to the host representation. The input is
// normalized first (see Normalize), then sealed.
func Wrap(portable []byte) ([]byte, error) {
	norm, err := Normalize(portable)
	if err != nil {
		return nil, err
	}

	return Seal(norm), nil
}

// Unwrap converts host save bytes back to portable bytes. It is the exact
// inverse of Seal, and of Wrap for already-normalized input.
func Unwrap(host []byte) ([]byte, error) {
	return Open(host)
}

// Normalize prepares portable bytes for encryption the way the host tooling
// does: a leading UTF-8 byte-order mark is dropped, the bytes are decoded as
// UTF-8 (invalid sequences become U+FFFD), and surrounding whitespace is trimmed.
func Normalize(portable []byte) ([]byte, error) {
	decoded, err := xunicode.UTF8BOM.NewDecoder().Bytes(portable)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedInput, Detail: "decoding UTF-8", Length: len(portable), Cause: err}
	}

	return bytes.TrimFunc(decoded, isTrimSpace), nil
}

// isTrimSpace matches the ECMAScript WhiteSpace and LineTerminator sets
// stripped by the host tooling. U+0085 is not among them.
func isTrimSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\uFEFF':
		return true
	}

	return unicode.Is(unicode.Zs, r)
}

// Seal pads, encrypts, base64-encodes and frames plain bytes without any
// text normalization.
func Seal(plain []byte) []byte {
	padded := pkcs7Pad(plain)
	ecbEncrypt(padded)

	payload := make([]byte, base64.StdEncoding.EncodedLen(len(padded)))
	base64.StdEncoding.Encode(payload, padded)

	return frame(payload)
}

// Open reverses Seal: validate framing, extract base64, decrypt, unpad.
func Open(host []byte) ([]byte, error) {
	body, _, err := unframe(host)
	if err != nil {
		return nil, err
	}

	encoded := collectBase64(body)
	if len(encoded) == 0 {
		return nil, newError(ErrBase64Decode, len(body), "no base64 data after header removal")
	}

	ciphertext := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))

	n, err := base64.StdEncoding.Decode(ciphertext, encoded)
	if err != nil {
		return nil, &Error{
			Kind:   ErrBase64Decode,
			Detail: fmt.Sprintf("base64 string of %d chars starting %q", len(encoded), preview(encoded)),
			Cause:  err,
		}
	}

	ciphertext = ciphertext[:n]
	if len(ciphertext) == 0 {
		return nil, newError(ErrBase64Decode, 0, "decoded data is empty")
	}

	if len(ciphertext)%BlockSize != 0 {
		return nil, newError(ErrInvalidBlockSize, len(ciphertext),
			"decoded length is not a multiple of %d", BlockSize)
	}

	ecbDecrypt(ciphertext)

	return pkcs7Unpad(ciphertext)
}

// previewLen bounds the base64 excerpt quoted in decode errors.
const previewLen = 50

func preview(b []byte) string {
	if len(b) > previewLen {
		return string(b[:previewLen])
	}

	return string(b)
}

// Direction selects which way Convert transforms its input.
type Direction string

// Conversion directions.
const (
	ToPortable Direction = "to-portable"
	ToHost     Direction = "to-host"
)

// ParseDirection accepts the canonical direction names plus the platform
// aliases used by the save-manager tooling ("pc-to-switch" decrypts,
// "switch-to-pc" encrypts).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ToPortable), "host-to-portable", "pc-to-switch", "decrypt":
		return ToPortable, nil
	case string(ToHost), "portable-to-host", "switch-to-pc", "encrypt":
		return ToHost, nil
	default:
		return "", fmt.Errorf("savecodec: unknown direction %q (want %q or %q)", s, ToPortable, ToHost)
	}
}

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	if d == ToHost {
		return ToPortable
	}

	return ToHost
}

// Convert applies the transform selected by d. Empty input is rejected
// before any decoding so callers get a clear message for zero-byte files.
func Convert(d Direction, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &Error{Kind: ErrMalformedInput, Detail: "input is empty"}
	}

	switch d {
	case ToPortable:
		return Unwrap(data)
	case ToHost:
		return Wrap(data)
	default:
		return nil, fmt.Errorf("savecodec: unknown direction %q", d)
	}
}
