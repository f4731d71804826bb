package savecodec

import (
	"crypto/aes"
	"crypto/cipher"
)

// saveKey is the AES-256 key the host runtime uses for every save file.
var saveKey = []byte("UKu52ePUBwetZ9wNX88o54dnfKRu0T1l")

// BlockSize is the AES block size; ciphertext is always a multiple of it.
const BlockSize = aes.BlockSize

func newBlock() cipher.Block {
	block, err := aes.NewCipher(saveKey)
	if err != nil {
		// The key is a 32-byte constant; NewCipher only fails on bad key sizes.
		panic("savecodec: invalid embedded key: " + err.Error())
	}

	return block
}

// ecbEncrypt encrypts src in place block by block. len(src) must be a
// multiple of BlockSize.
func ecbEncrypt(src []byte) {
	block := newBlock()

	for off := 0; off < len(src); off += BlockSize {
		block.Encrypt(src[off:off+BlockSize], src[off:off+BlockSize])
	}
}

// ecbDecrypt decrypts src in place block by block. len(src) must be a
// multiple of BlockSize.
func ecbDecrypt(src []byte) {
	block := newBlock()

	for off := 0; off < len(src); off += BlockSize {
		block.Decrypt(src[off:off+BlockSize], src[off:off+BlockSize])
	}
}

// pkcs7Pad appends 1..16 bytes of padding. A length that is already a
// multiple of BlockSize receives a full block of value 16.
func pkcs7Pad(b []byte) []byte {
	pad := BlockSize - len(b)%BlockSize

	out := make([]byte, len(b), len(b)+pad)
	copy(out, b)

	for range pad {
		out = append(out, byte(pad))
	}

	return out
}

// pkcs7Unpad validates and strips PKCS7 padding. A bad pad is the usual
// symptom of a wrong key or a corrupted file, so the error carries the pad
// value and a dump of the trailing bytes.
func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, &Error{Kind: ErrInvalidPadding, Detail: "decrypted data is empty"}
	}

	pad := int(b[len(b)-1])
	if pad < 1 || pad > BlockSize || pad > len(b) {
		return nil, &Error{
			Kind:     ErrInvalidPadding,
			Detail:   "pad value out of range 1-16",
			Length:   len(b),
			PadValue: pad,
			Tail:     tail(b),
		}
	}

	for _, v := range b[len(b)-pad:] {
		if int(v) != pad {
			return nil, &Error{
				Kind:     ErrInvalidPadding,
				Detail:   "pad bytes are not all equal",
				Length:   len(b),
				PadValue: pad,
				Tail:     tail(b),
			}
		}
	}

	return b[:len(b)-pad], nil
}
