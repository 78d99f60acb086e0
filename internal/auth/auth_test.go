package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateJWT("user_123", secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	userID, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user_123" {
		t.Errorf("userID = %q", userID)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	expired, _ := GenerateJWT("u", secret, -time.Minute)
	otherKey, _ := GenerateJWT("u", []byte("other"), time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"expired":   expired,
		"wrong key": otherKey,
		"alg none":  none,
		"garbage":   "not-a-token",
	} {
		if _, err := ValidateToken(token, secret); err == nil {
			t.Errorf("%s: token accepted", name)
		}
	}
	if _, err := GenerateJWT("", secret, time.Hour); err == nil {
		t.Error("empty user id accepted")
	}
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	id := FromContext(r.Context())
	if !id.SignedIn {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(id.UserID))
}

func TestMiddleware(t *testing.T) {
	h := Middleware(secret, nil)(http.HandlerFunc(echoIdentity))
	valid, _ := GenerateJWT("user_9", secret, time.Hour)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
		wantBody string
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK, "user_9"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: valid}) }, http.StatusOK, "user_9"},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized, ""},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMiddlewareWithoutSecret(t *testing.T) {
	h := Middleware(nil, nil)(http.HandlerFunc(echoIdentity))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != LocalUserID {
		t.Errorf("code=%d body=%q", rec.Code, rec.Body.String())
	}
}
