package hls

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/reelforge/reelforge/internal/rferrors"
)

// Decrypt reverses AES-128-CBC encryption with the given key/IV and strips
// PKCS7 padding. data must be a multiple of the AES block size, which HLS
// segment encryption guarantees by construction.
func Decrypt(data, key []byte, iv [16]byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, rferrors.New(rferrors.Decrypt, err, "building AES cipher")
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, rferrors.New(rferrors.Decrypt, nil, "segment length not aligned to AES block size")
	}
	if len(data) == 0 {
		return data, nil
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(out, data)
	return unpadPKCS7(out)
}

func unpadPKCS7(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return data, nil
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > n || padLen > aes.BlockSize {
		return nil, rferrors.New(rferrors.Decrypt, nil, "invalid PKCS7 padding")
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, rferrors.New(rferrors.Decrypt, nil, "invalid PKCS7 padding")
		}
	}
	return data[:n-padLen], nil
}
