// Package crypto implements the catalog API's request-signing envelope
// (spec §4.10), an AES-128-ECB/PKCS7 scheme with an MD5 checksum over the
// URI and payload, grounded in original_source/src/netease/crypto.rs's
// `eapi` function — translated to Go's standard crypto/aes (crypto/cipher
// has no ECB mode, so ECB is assembled block-by-block below on the block
// cipher aes.NewCipher returns).
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
)

// eapiKey is the fixed AES key the catalog API's "eapi" request signing
// scheme uses; it is not a secret worth deriving per-session, just an
// obfuscation constant the client and server both hard-code.
const eapiKey = "e82ckenh8dichen8"

// EncodeEapi builds the signed request body for uri carrying the JSON
// payload: AES-128-ECB-encrypt(hex upper) of
// "{uri}-36cd479b6b5-{payload}-36cd479b6b5-{md5(nobody{uri}use{payload}md5forencrypt)}".
func EncodeEapi(uri string, payload []byte) (string, error) {
	digest := md5.Sum([]byte(fmt.Sprintf("nobody%suse%smd5forencrypt", uri, payload)))
	message := fmt.Sprintf("%s-36cd479b6b5-%s-36cd479b6b5-%s", uri, payload, hex.EncodeToString(digest[:]))

	ct, err := ecbEncrypt([]byte(eapiKey), []byte(message))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%X", ct), nil
}

// DecodeEapi reverses the server's AES-128-ECB response envelope, hex
// upper encoded, returning the plaintext JSON body.
func DecodeEapi(hexCipher string) ([]byte, error) {
	ct, err := hex.DecodeString(hexCipher)
	if err != nil {
		return nil, fmt.Errorf("decode hex ciphertext: %w", err)
	}
	return ecbDecrypt([]byte(eapiKey), ct)
}

func ecbEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(out[i:i+block.BlockSize()], padded[i:i+block.BlockSize()])
	}
	return out, nil
}

func ecbDecrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	size := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%size != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += size {
		block.Decrypt(out[i:i+size], ciphertext[i:i+size])
	}
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte(nil), data...), padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	n := len(data)
	if n == 0 {
		return nil, errors.New("empty plaintext")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > n {
		return nil, errors.New("invalid pkcs7 padding")
	}
	for _, b := range data[n-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("invalid pkcs7 padding")
		}
	}
	return data[:n-padLen], nil
}
