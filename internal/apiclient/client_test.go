package apiclient_test

import (
	"bytes"
	"context"
	"crypto/aes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sorairo/resonance/internal/apiclient"
	"github.com/sorairo/resonance/internal/apiclient/crypto"
	"github.com/sorairo/resonance/internal/domain"
)

// eapiKey mirrors the unexported constant in internal/apiclient/crypto;
// a real catalog server hard-codes the same value.
const eapiKey = "e82ckenh8dichen8"

// encryptResponse stands in for what a real catalog server does to its
// reply body: plain AES-128-ECB+PKCS7 over the JSON, hex upper encoded.
// Unlike crypto.EncodeEapi (which signs an outgoing *request* and wraps
// it with the uri/digest envelope) a response is just the encrypted
// JSON with nothing else layered on, per
// original_source/src/netease/crypto.rs's eapi_res_decrypt_json.
func encryptResponse(t *testing.T, plain []byte) string {
	t.Helper()
	block, err := aes.NewCipher([]byte(eapiKey))
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	size := block.BlockSize()
	padLen := size - len(plain)%size
	padded := append(append([]byte(nil), plain...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += size {
		block.Encrypt(out[i:i+size], padded[i:i+size])
	}
	return fmt.Sprintf("%X", out)
}

// fakeCatalog stands in for the real catalog API: it decrypts the
// "params" form field with the same eapi envelope a real server would,
// and lets the test supply the plaintext JSON to sign back.
func fakeCatalog(t *testing.T, reply func(uri string, body []byte) []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		signed, err := crypto.DecodeEapi(r.FormValue("params"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		respPlain := reply(r.URL.Path, signed)
		w.Write([]byte(encryptResponse(t, respPlain)))
	}))
}

func newTestClient(t *testing.T, reply func(uri string, body []byte) []byte) *httptest.Server {
	return fakeCatalog(t, reply)
}

func TestSearchDecodesSignedResponse(t *testing.T) {
	srv := newTestClient(t, func(uri string, body []byte) []byte {
		resp, _ := json.Marshal(map[string]any{
			"code": 200,
			"result": map[string]any{
				"songs": []map[string]any{
					{"id": 42, "name": "A Song", "ar": []map[string]any{{"name": "Artist"}}, "al": map[string]any{"name": "Album"}, "dt": 123000},
				},
			},
		})
		return resp
	})
	defer srv.Close()

	c := apiclient.New(apiclient.Config{BaseURL: srv.URL, DeviceID: "dev"}, nil)
	tracks, err := c.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != 42 || tracks[0].Title != "A Song" || tracks[0].Artists != "Artist" {
		t.Fatalf("unexpected tracks: %+v", tracks)
	}
}

func TestDoEapiSurfacesAuthErrorOnCode301(t *testing.T) {
	srv := newTestClient(t, func(uri string, body []byte) []byte {
		resp, _ := json.Marshal(map[string]any{"code": 301})
		return resp
	})
	defer srv.Close()

	c := apiclient.New(apiclient.Config{BaseURL: srv.URL, DeviceID: "dev"}, nil)
	_, err := c.Playlists(context.Background())
	if err == nil {
		t.Fatal("expected an error for code 301")
	}
}

func TestQRPollMapsStatusCodes(t *testing.T) {
	srv := newTestClient(t, func(uri string, body []byte) []byte {
		resp, _ := json.Marshal(map[string]any{"code": 803})
		return resp
	})
	defer srv.Close()

	c := apiclient.New(apiclient.Config{BaseURL: srv.URL, DeviceID: "dev"}, nil)
	status, err := c.QRPoll(context.Background(), "key")
	if err != nil {
		t.Fatalf("QRPoll: %v", err)
	}
	if status != domain.LoginQrConfirmed {
		t.Fatalf("expected LoginQrConfirmed, got %v", status)
	}
}

func TestResolveSongURLReturnsTransientErrorWhenMissing(t *testing.T) {
	srv := newTestClient(t, func(uri string, body []byte) []byte {
		resp, _ := json.Marshal(map[string]any{"code": 200, "data": []map[string]any{{"url": ""}}})
		return resp
	})
	defer srv.Close()

	c := apiclient.New(apiclient.Config{BaseURL: srv.URL, DeviceID: "dev"}, nil)
	if _, err := c.ResolveSongURL(context.Background(), 1, 320000); err == nil {
		t.Fatal("expected an error when no url is returned")
	}
}
