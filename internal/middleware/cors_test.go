package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func doCORS(t *testing.T, origins []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	called := false
	h := CORS(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/tutor/session/start", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if method == http.MethodOptions && called {
		t.Error("preflight must not reach the next handler")
	}
	return rec
}

func TestCORSExplicitOriginAllowsCredentials(t *testing.T) {
	t.Parallel()

	rec := doCORS(t, []string{"https://app.example.com"}, http.MethodPost, "https://app.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("explicit origin should allow credentials")
	}
}

func TestCORSWildcardEchoesOriginWithoutCredentials(t *testing.T) {
	t.Parallel()

	rec := doCORS(t, []string{"*"}, http.MethodPost, "https://anywhere.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.example.com" {
		t.Errorf("unexpected allow-origin %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard match must not allow credentials")
	}
}

func TestCORSUnlistedOriginGetsNoHeaders(t *testing.T) {
	t.Parallel()

	rec := doCORS(t, []string{"https://app.example.com"}, http.MethodPost, "https://evil.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q for unlisted origin", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	rec := doCORS(t, []string{"*"}, http.MethodOptions, "https://app.example.com")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight response missing allow-methods header")
	}
}
