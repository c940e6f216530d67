package voice

import (
	"golang.org/x/crypto/nacl/secretbox"
)

// secretboxEncrypt seals plaintext with the session's shared key under
// nonce, producing ciphertext prefixed by the 16-byte Poly1305 MAC
// (§4.2). Grounded on the inline secretbox.Seal call in the teacher's
// voice/udp.go opusSendLoop.
func secretboxEncrypt(plaintext []byte, nonce [24]byte, key [32]byte) []byte {
	return secretbox.Seal(nil, plaintext, &nonce, &key)
}

// secretboxDecrypt opens ciphertext sealed under nonce with key,
// returning ErrAuthenticationFailed if the Poly1305 tag does not
// verify (§4.2, §7).
func secretboxDecrypt(ciphertext []byte, nonce [24]byte, key [32]byte) ([]byte, error) {
	plaintext, ok := secretbox.Open(nil, ciphertext, &nonce, &key)
	if !ok {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
