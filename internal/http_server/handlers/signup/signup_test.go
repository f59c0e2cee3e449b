package signup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"session_service/internal/auth"
	"session_service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSignUpper struct {
	err error
	in  models.SignupInput
}

func (m *mockSignUpper) SignUp(_ context.Context, in models.SignupInput) (models.User, error) {
	m.in = in
	if m.err != nil {
		return models.User{}, m.err
	}
	return models.User{ID: 7, LoginID: in.LoginID, Name: in.Name, Email: in.Email, Phone: in.Phone, PassHash: "secret-hash"}, nil
}

const validBody = `{"cid":"bob","password":"hunter2","name":"Bob","email":"bob@example.com","phone":"01099998888"}`

func post(svc SignUpper, body string) *httptest.ResponseRecorder {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), validator.New(), svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignUp_Created(t *testing.T) {
	svc := &mockSignUpper{}

	rec := post(svc, validBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")

	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "bob", got.LoginID)

	assert.Equal(t, "hunter2", svc.in.Password)
}

func TestSignUp_Conflict(t *testing.T) {
	rec := post(&mockSignUpper{err: auth.ErrUserExists}, validBody)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignUp_Invalid(t *testing.T) {
	rec := post(&mockSignUpper{}, `{"cid":"bob","password":"hunter2"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email is a required field")
}
