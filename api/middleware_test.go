package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

func TestServer_RequestID(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("should generate a request id", func(t *testing.T) {
		rec := ts.get(t, "/healthz")

		id, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
		if err != nil || id.Version() != 7 {
			t.Fatalf("\nwanted:\nUUIDv7 request id\ngot:\n%q (%v)", rec.Header().Get("X-Request-ID"), err)
		}
	})

	t.Run("should reuse a valid incoming request id", func(t *testing.T) {
		incoming := "0190b6a4-8f4e-7c3a-9d2e-5f6a7b8c9d0e"
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", incoming)

		if got := ts.do(t, req).Header().Get("X-Request-ID"); got != incoming {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", incoming, got)
		}
	})

	t.Run("should replace an invalid incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "not-a-uuid")

		if got := ts.do(t, req).Header().Get("X-Request-ID"); got == "not-a-uuid" {
			t.Fatalf("\nwanted:\na generated id\ngot:\n%s", got)
		}
	})
}

func TestServer_Compression(t *testing.T) {
	ts := setupTestServer(t)
	ts.authed(t, http.MethodPost, "/api/packages", parisEmAlta())

	t.Run("should brotli encode json for clients that accept it", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/packages", nil)
		req.Header.Set("Accept-Encoding", "gzip, br")
		rec := ts.do(t, req)

		assertStatus(t, rec, http.StatusOK)
		if got := rec.Header().Get("Content-Encoding"); got != "br" {
			t.Fatalf("\nwanted:\nbr\ngot:\n%q", got)
		}

		decoded, err := io.ReadAll(brotli.NewReader(rec.Body))
		if err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		var packages []map[string]any
		if err := json.Unmarshal(decoded, &packages); err != nil {
			t.Fatalf("\nwanted:\njson\ngot:\n%s", decoded)
		}
		if len(packages) != 1 || packages[0]["slug"] != "paris-em-alta" {
			t.Fatalf("\nwanted:\n[paris-em-alta]\ngot:\n%v", packages)
		}
	})

	t.Run("should not encode for other clients", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/packages", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := ts.do(t, req)

		if got := rec.Header().Get("Content-Encoding"); got != "" {
			t.Fatalf("\nwanted:\nno encoding\ngot:\n%q", got)
		}
		if rec.Header().Get("Vary") != "Accept-Encoding" {
			t.Fatalf("\nwanted:\nVary: Accept-Encoding\ngot:\n%q", rec.Header().Get("Vary"))
		}
	})

	t.Run("should leave images alone", func(t *testing.T) {
		ts.do(t, ts.multipartRequest(t, "/api/banner", "banner", formPart{name: "hero.png", data: pngBytes(t)}))

		req := httptest.NewRequest(http.MethodGet, "/uploads/banners/banner.png", nil)
		req.Header.Set("Accept-Encoding", "br")
		rec := ts.do(t, req)

		assertStatus(t, rec, http.StatusOK)
		if got := rec.Header().Get("Content-Encoding"); got != "" {
			t.Fatalf("\nwanted:\nno encoding\ngot:\n%q", got)
		}
	})
}

func TestAcceptsBrotli(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{header: "", want: false},
		{header: "gzip, deflate", want: false},
		{header: "br", want: true},
		{header: "gzip, br;q=0.8", want: true},
		{header: "br;q=0", want: false},
		{header: "brotli", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := acceptsBrotli(tt.header); got != tt.want {
				t.Fatalf("\nwanted:\n%v\ngot:\n%v", tt.want, got)
			}
		})
	}
}

func TestServer_NoRoute(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.get(t, "/api/desconhecida")

	assertStatus(t, rec, http.StatusNotFound)
	if got := decode[map[string]any](t, rec)["error"]; got != "Rota não encontrada" {
		t.Fatalf("\nwanted:\n%q\ngot:\n%v", "Rota não encontrada", got)
	}
}

func TestCORSConfig(t *testing.T) {
	t.Run("should allow every origin by default", func(t *testing.T) {
		if config := corsConfig(nil); !config.AllowAllOrigins {
			t.Fatalf("\nwanted:\nAllowAllOrigins\ngot:\n%+v", config)
		}
		if config := corsConfig([]string{"https://a.example", "*"}); !config.AllowAllOrigins {
			t.Fatalf("\nwanted:\nAllowAllOrigins\ngot:\n%+v", config)
		}
	})

	t.Run("should list explicit origins without trailing slashes", func(t *testing.T) {
		config := corsConfig([]string{" https://a.example/ ", ""})
		if config.AllowAllOrigins || len(config.AllowOrigins) != 1 || config.AllowOrigins[0] != "https://a.example" {
			t.Fatalf("\nwanted:\n[https://a.example]\ngot:\n%+v", config.AllowOrigins)
		}
	})
}
