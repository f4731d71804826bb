package savecodec

import (
	"bytes"
	"encoding/binary"
)

// hostHeader is the fixed binary-serializer preamble every host save starts with.
var hostHeader = []byte{
	0x00, 0x01, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x06, 0x01, 0x00, 0x00, 0x00,
}

const (
	// HeaderLen is the length of the fixed host header.
	HeaderLen = 22

	// trailerByte terminates every host save.
	trailerByte = 0x0B

	// minHostLen is the header plus the trailer byte.
	minHostLen = HeaderLen + 1

	// maxPrefixLen bounds the 7-bit length prefix of a 31-bit value.
	maxPrefixLen = 5

	// maxPrefixValue caps the encoded length, as the host runtime does.
	maxPrefixValue = 0x7FFFFFFF
)

// AppendLengthPrefix appends n as a 7-bit little-endian varint (high bit =
// continuation). n is clamped to [0, 0x7FFFFFFF] so at most 5 bytes are written.
func AppendLengthPrefix(dst []byte, n int) []byte {
	v := min(max(n, 0), maxPrefixValue)

	return binary.AppendUvarint(dst, uint64(v))
}

// frame wraps a base64 payload with header, length prefix and trailer.
// The result is exactly HeaderLen + len(prefix) + len(payload) + 1 bytes.
func frame(payload []byte) []byte {
	prefix := AppendLengthPrefix(nil, len(payload))

	out := make([]byte, 0, HeaderLen+len(prefix)+len(payload)+1)
	out = append(out, hostHeader...)
	out = append(out, prefix...)
	out = append(out, payload...)
	out = append(out, trailerByte)

	return out
}

// unframe validates the header, drops it and the trailer, skips the length
// prefix, and returns the raw body that follows. The declared length is
// returned for diagnostics only; the body is delimited by the trailer, not by
// the prefix, because that is how the host runtime's own readers behave.
func unframe(data []byte) (body []byte, declared int, err error) {
	if len(data) < minHostLen {
		return nil, 0, newError(ErrMalformedInput, len(data),
			"too short to contain header and trailer (need at least %d bytes)", minHostLen)
	}

	if !bytes.Equal(data[:HeaderLen], hostHeader) {
		return nil, 0, newError(ErrMalformedHeader, len(data),
			"first %d bytes are %x", HeaderLen, data[:HeaderLen])
	}

	rest := data[HeaderLen : len(data)-1]

	prefixLen := 0
	terminated := false

	for i := 0; i < min(maxPrefixLen, len(rest)); i++ {
		prefixLen++

		if rest[i]&0x80 == 0 {
			terminated = true
			break
		}
	}

	if !terminated {
		return nil, 0, newError(ErrMalformedLengthPrefix, len(rest),
			"no terminating byte within %d prefix bytes", maxPrefixLen)
	}

	if prefixLen >= len(rest) {
		return nil, 0, newError(ErrMalformedLengthPrefix, len(rest),
			"prefix of %d bytes consumes the entire body", prefixLen)
	}

	v, _ := binary.Uvarint(rest[:prefixLen])

	return rest[prefixLen:], int(v), nil
}

// isBase64Char reports whether b belongs to the standard base64 alphabet
// including the '=' pad character.
func isBase64Char(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '+', b == '/', b == '=':
		return true
	default:
		return false
	}
}

// collectBase64 keeps base64-alphabet bytes up to the first NUL. Any other
// byte (whitespace, line breaks) is skipped; everything after NUL is ignored.
func collectBase64(body []byte) []byte {
	out := make([]byte, 0, len(body))

	for _, b := range body {
		if b == 0 {
			break
		}

		if isBase64Char(b) {
			out = append(out, b)
		}
	}

	return out
}
