package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate-go/internal/crypto"
	"github.com/authgate/authgate-go/internal/metrics"
	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
	"github.com/authgate/authgate-go/internal/service"
	"github.com/authgate/authgate-go/internal/validator"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := crypto.NewTokenIssuer("test-secret", 0)
	require.NoError(t, err)
	hasher := crypto.NewHasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1}, crypto.NewPool(2))
	repo := repository.NewAccountRepository(repository.NewMemoryStore(), time.Second)
	m := metrics.New()

	srv := httptest.NewServer(NewRouter(RouterDeps{
		Auth:    service.NewAuthService(repo, hasher, tokens, m, logger),
		Tokens:  tokens,
		Metrics: m,
		Logger:  logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

const annaLee = `{"email":"a@b.com","firstname":"Anna","lastname":"Lee","password":"password1"}`

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv, "/api/register", annaLee)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var registered model.AuthResult
	require.NoError(t, json.Unmarshal(body, &registered))
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, model.PublicAccount{Email: "a@b.com", FirstName: "Anna", LastName: "Lee"}, registered.Account)
	assert.NotContains(t, string(body), "password")

	resp, body = post(t, srv, "/api/login", `{"email":"a@b.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loggedIn model.AuthResult
	require.NoError(t, json.Unmarshal(body, &loggedIn))
	assert.NotEmpty(t, loggedIn.Token)
	assert.Equal(t, registered.Account, loggedIn.Account)
}

func TestRegisterErrors(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := post(t, srv, "/api/register", annaLee)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"duplicate email", annaLee, http.StatusConflict, "User with email a@b.com already exists"},
		{"malformed json", `{"email":`, http.StatusBadRequest, "invalid request body"},
		{"non-string value", `{"email":"x@b.com","firstname":"Anna","lastname":"Lee","password":12345678}`, http.StatusBadRequest, "invalid request body"},
		{"array body", `[]`, http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/api/register", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var got map[string]string
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.wantMessage, got["message"])
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv, "/api/register", `{"email":"a@b.com","firstname":"Al","lastname":"Lee","password":"password1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var got validationResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, validator.Violations{{Field: "firstname", Message: validator.MsgFirstNameLength}}, got.Errors)
}

func TestRegisterEmptyBody(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv, "/api/register", `null`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var got validationResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got.Errors, 6)
}

func TestRegisterBodyTooLarge(t *testing.T) {
	tokens, err := crypto.NewTokenIssuer("test-secret", 0)
	require.NoError(t, err)
	router := NewRouter(RouterDeps{Tokens: tokens, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	big := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLoginErrors(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := post(t, srv, "/api/register", annaLee)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"unknown email", `{"email":"ghost@b.com","password":"password1"}`, http.StatusBadRequest, "Cannot find user"},
		{"wrong password", `{"email":"a@b.com","password":"password2"}`, http.StatusBadRequest, "Invalid password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, "/api/login", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var got map[string]string
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.wantMessage, got["message"])
			assert.NotContains(t, string(body), "token")
		})
	}

	resp, _ = post(t, srv, "/api/login", `{"email":"not-an-email","password":"password1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestMe(t *testing.T) {
	srv := newTestServer(t)
	_, body := post(t, srv, "/api/register", annaLee)
	var registered model.AuthResult
	require.NoError(t, json.Unmarshal(body, &registered))

	get := func(authorization string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("Bearer " + registered.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var account model.PublicAccount
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&account))
	assert.Equal(t, registered.Account, account)

	assert.Equal(t, http.StatusUnauthorized, get("").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer not-a-token").StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv, "/api/login", `{"email":"ghost@b.com","password":"password1"}`)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `authgate_auth_requests_total{flow="login",outcome="not_found"} 1`)
}
