package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUserID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			id = "anonymous"
		}
		_, _ = w.Write([]byte(id))
	})
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-1")
	expired, _ := ts.GenerateWithDuration("user-1", -time.Minute)

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantBody string
	}{
		{"valid cookie", valid, http.StatusOK, "user-1"},
		{"no cookie", "", http.StatusUnauthorized, `"error":"unauthorized"`},
		{"expired cookie", expired, http.StatusUnauthorized, `"error":"unauthorized"`},
		{"garbage cookie", "abc", http.StatusUnauthorized, `"error":"unauthorized"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireAuth(ts)(echoUserID()).ServeHTTP(rec, requestWithToken(tt.token))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-2")

	rec := httptest.NewRecorder()
	OptionalAuth(ts)(echoUserID()).ServeHTTP(rec, requestWithToken(valid))
	assert.Equal(t, "user-2", rec.Body.String())

	rec = httptest.NewRecorder()
	OptionalAuth(ts)(echoUserID()).ServeHTTP(rec, requestWithToken("garbage"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", time.Hour, true)
	ClearSessionCookie(rec, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	assert.Equal(t, "tok", cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	assert.Equal(t, "", cookies[1].Value)
	assert.Less(t, cookies[1].MaxAge, 0)
}
