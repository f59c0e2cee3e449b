package signin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"session_service/internal/auth"
	"session_service/internal/middleware/clientinfo"
	"session_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSignInner struct {
	err    error
	client models.ClientInfo
	fcm    string
}

func (m *mockSignInner) SignIn(_ context.Context, client models.ClientInfo, loginID, password, fcmToken string) (models.TokenPair, error) {
	m.client = client
	m.fcm = fcmToken
	if m.err != nil {
		return models.TokenPair{}, m.err
	}
	return models.TokenPair{AccessToken: "at-" + loginID, RefreshToken: "rt-" + loginID}, nil
}

func serve(t *testing.T, svc SignInner, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := clientinfo.New()(New(log, validator.New(), svc))

	req := httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignIn_OK(t *testing.T) {
	svc := &mockSignInner{}

	rec := serve(t, svc, `{"cid":"alice","password":"p@ss","fcmToken":"fcm-1"}`, map[string]string{
		"User-Agent":      "okhttp/4.9",
		"X-Forwarded-For": "198.51.100.4",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "OK", got.Status)
	assert.Equal(t, "at-alice", got.AccessToken)
	assert.Equal(t, "rt-alice", got.RefreshToken)

	assert.Equal(t, models.ClientMobile, svc.client.Type)
	assert.Equal(t, "okhttp/4.9", svc.client.Agent)
	assert.Equal(t, "198.51.100.4", svc.client.IP)
	assert.Equal(t, "fcm-1", svc.fcm)
}

func TestSignIn_ErrorStatus(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{"cid":`, nil, http.StatusBadRequest},
		{"missing password", `{"cid":"alice"}`, nil, http.StatusBadRequest},
		{"invalid credentials", `{"cid":"alice","password":"x"}`, auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"upstream", `{"cid":"alice","password":"x"}`, fmt.Errorf("op: %w: %w", auth.ErrUpstreamCoordination, errors.New("503")), http.StatusBadGateway},
		{"persistence", `{"cid":"alice","password":"x"}`, auth.ErrPersistence, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, &mockSignInner{err: tc.err}, tc.body, map[string]string{"X-CLIENT-TYPE": "WEB"})
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"Error"`)
			assert.NotContains(t, rec.Body.String(), "access_token")
		})
	}
}
