package widevine

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"fmt"
)

// SignRequest signs a key server request body: the SHA-1 digest of body is
// PKCS#7 padded and encrypted with AES-CBC under the signer key and IV.
func SignRequest(body, key, iv []byte) ([]byte, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, newError("sign", fmt.Errorf("%w: %d bytes, need 16, 24 or 32", ErrInvalidSignerKey, len(key)))
	}
	if len(iv) != aes.BlockSize {
		return nil, newError("sign", fmt.Errorf("%w: %d bytes, need %d", ErrInvalidIV, len(iv), aes.BlockSize))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, newError("sign", fmt.Errorf("%w: %v", ErrInvalidSignerKey, err))
	}

	digest := sha1.Sum(body)
	msg := pkcs7Pad(digest[:], aes.BlockSize)
	out := make([]byte, len(msg))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, msg)
	return out, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}
