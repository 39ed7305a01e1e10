package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

func login(t *testing.T, ts *testServer, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req)
}

func TestServer_Login(t *testing.T) {
	t.Run("should issue a token for valid credentials", func(t *testing.T) {
		ts := setupTestServer(t)

		rec := login(t, ts, adminEmail, adminPassword)
		assertStatus(t, rec, http.StatusOK)

		body := decode[map[string]any](t, rec)
		token, _ := body["token"].(string)
		if token == "" || body["expiresAt"] == nil {
			t.Fatalf("\nwanted:\ntoken and expiresAt\ngot:\n%v", body)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		me := decode[map[string]any](t, ts.do(t, req))
		if me["email"] != adminEmail {
			t.Fatalf("\nwanted:\n%s\ngot:\n%v", adminEmail, me)
		}
	})

	t.Run("should answer 401 for a wrong password", func(t *testing.T) {
		ts := setupTestServer(t)

		rec := login(t, ts, adminEmail, "errada")

		assertStatus(t, rec, http.StatusUnauthorized)
		if got := decode[map[string]any](t, rec)["error"]; got != "E-mail ou senha inválidos" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%v", "E-mail ou senha inválidos", got)
		}
	})

	t.Run("should answer 400 without credentials", func(t *testing.T) {
		ts := setupTestServer(t)

		for _, credentials := range [][2]string{{"", ""}, {adminEmail, ""}, {"", adminPassword}} {
			rec := login(t, ts, credentials[0], credentials[1])
			assertStatus(t, rec, http.StatusBadRequest)
			if got := decode[map[string]any](t, rec)["error"]; got != "Informe e-mail e senha" {
				t.Fatalf("\nwanted:\n%q\ngot:\n%v", "Informe e-mail e senha", got)
			}
		}
	})

	t.Run("should answer 400 for a malformed body", func(t *testing.T) {
		ts := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":`))
		req.Header.Set("Content-Type", "application/json")

		assertStatus(t, ts.do(t, req), http.StatusBadRequest)
	})

	t.Run("should reject a forged token", func(t *testing.T) {
		ts := setupTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")

		assertStatus(t, ts.do(t, req), http.StatusUnauthorized)
	})
}

func TestServer_CatalogStats(t *testing.T) {
	ts := setupTestServer(t)

	ts.authed(t, http.MethodPost, "/api/packages", parisEmAlta())
	ts.authed(t, http.MethodPost, "/api/packages", map[string]any{"title": "Gramado", "type": "nacional"})

	rec := ts.authed(t, http.MethodGet, "/api/admin/stats", nil)
	assertStatus(t, rec, http.StatusOK)

	got := decode[domain.CatalogStats](t, rec)
	if got.Packages != 2 || got.Featured != 1 || got.ByType[domain.Nacional] != 1 || got.ByType[domain.Internacional] != 1 {
		t.Fatalf("\nwanted:\n2 packages, 1 featured, 1 per type\ngot:\n%+v", got)
	}

	t.Run("should require a token", func(t *testing.T) {
		assertStatus(t, ts.get(t, "/api/admin/stats"), http.StatusUnauthorized)
	})
}

func TestServer_AuditLogs(t *testing.T) {
	t.Run("should record writes with the actor and request id", func(t *testing.T) {
		ts := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/packages", strings.NewReader(`{"title":"Paris em Alta"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+ts.token)
		req.Header.Set("X-Request-ID", "0190b6a4-8f4e-7c3a-9d2e-5f6a7b8c9d0e")
		assertStatus(t, ts.do(t, req), http.StatusOK)

		rec := ts.authed(t, http.MethodGet, "/api/admin/logs?limit=1", nil)
		assertStatus(t, rec, http.StatusOK)

		entries := decode[[]map[string]any](t, rec)
		if len(entries) != 1 {
			t.Fatalf("\nwanted:\n1 entry\ngot:\n%d", len(entries))
		}
		entry := entries[0]
		if entry["message"] != "package saved" || entry["actor"] != adminEmail || entry["requestId"] != "0190b6a4-8f4e-7c3a-9d2e-5f6a7b8c9d0e" {
			t.Fatalf("\nwanted:\npackage saved by %s\ngot:\n%v", adminEmail, entry)
		}
		context, _ := entry["context"].(map[string]any)
		if context["slug"] != "paris-em-alta" {
			t.Fatalf("\nwanted:\nslug in context\ngot:\n%v", context)
		}
	})

	t.Run("should record failed logins", func(t *testing.T) {
		ts := setupTestServer(t)

		login(t, ts, adminEmail, "errada")

		entries := decode[[]map[string]any](t, ts.authed(t, http.MethodGet, "/api/admin/logs", nil))
		if len(entries) == 0 || entries[0]["message"] != "login failed" || entries[0]["level"] != "WARN" {
			t.Fatalf("\nwanted:\nlogin failed entry\ngot:\n%v", entries)
		}
	})

	t.Run("should reject an invalid limit", func(t *testing.T) {
		ts := setupTestServer(t)

		for _, limit := range []string{"zero", "-5"} {
			rec := ts.authed(t, http.MethodGet, "/api/admin/logs?limit="+limit, nil)
			assertStatus(t, rec, http.StatusBadRequest)
			if got := decode[map[string]any](t, rec)["error"]; got != "Parâmetro limit inválido" {
				t.Fatalf("\nwanted:\n%q\ngot:\n%v", "Parâmetro limit inválido", got)
			}
		}
	})
}
