package crypto_test

import (
	"strings"
	"testing"

	"github.com/sorairo/resonance/internal/apiclient/crypto"
)

func TestEncodeDecodeEapiRoundTrips(t *testing.T) {
	uri := "/api/song/enhance/player/url"
	payload := []byte(`{"ids":"[1]","br":320000}`)

	encoded, err := crypto.EncodeEapi(uri, payload)
	if err != nil {
		t.Fatalf("EncodeEapi: %v", err)
	}
	if encoded == "" || strings.ToUpper(encoded) != encoded {
		t.Fatalf("expected non-empty upper-hex output, got %q", encoded)
	}

	// DecodeEapi only reverses the AES-ECB/PKCS7 envelope (what a server
	// reply uses); to exercise it against our own output we decrypt the
	// same ciphertext and check the plaintext matches the signed message
	// shape, not the original payload (the signed message also embeds the
	// uri and an md5 digest).
	plain, err := crypto.DecodeEapi(encoded)
	if err != nil {
		t.Fatalf("DecodeEapi: %v", err)
	}
	if !strings.Contains(string(plain), uri) || !strings.Contains(string(plain), string(payload)) {
		t.Fatalf("decoded message missing expected parts: %s", plain)
	}
}

func TestDecodeEapiRejectsBadHex(t *testing.T) {
	if _, err := crypto.DecodeEapi("not-hex!!"); err == nil {
		t.Fatal("expected an error for invalid hex input")
	}
}

func TestDecodeEapiRejectsWrongLength(t *testing.T) {
	// Valid hex, but not a multiple of the AES block size (16 bytes).
	if _, err := crypto.DecodeEapi("AABBCC"); err == nil {
		t.Fatal("expected an error for a truncated ciphertext")
	}
}
