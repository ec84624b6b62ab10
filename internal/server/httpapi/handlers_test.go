package httpapi

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/dbx"
	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/dmitrijs2005/termbind/internal/server/config"
	"github.com/dmitrijs2005/termbind/internal/server/models"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/pairings"
	"github.com/dmitrijs2005/termbind/internal/server/services"
)

// In-memory backing store shared by all fake repositories in one test.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	pairings map[pairings.Namespace]map[string]*models.PairingRequest
	blobs    map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		pairings: map[pairings.Namespace]map[string]*models.PairingRequest{
			pairings.Terminal: {},
			pairings.Account:  {},
		},
		blobs: map[string][]byte{},
	}
}

func (m *memStore) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *memStore) Accounts(db dbx.DBTX) accounts.Repository { return &memAccounts{m} }

func (m *memStore) Pairings(db dbx.DBTX, ns pairings.Namespace) pairings.Repository {
	return &memPairings{m, ns}
}

func (m *memStore) Credentials(db dbx.DBTX) credentials.Repository { return &memCreds{m} }

type memAccounts struct{ s *memStore }

func (r *memAccounts) Upsert(ctx context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.accounts[id]
	if !ok {
		acc = &models.Account{ID: id, CreatedAt: time.Now()}
		r.s.accounts[id] = acc
	}
	acc.LastLoginAt = time.Now()
	return acc, nil
}

func (r *memAccounts) Get(ctx context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return acc, nil
}

type memPairings struct {
	s  *memStore
	ns pairings.Namespace
}

func (r *memPairings) GetOrCreate(ctx context.Context, publicKey string, supportsV2 bool) (*models.PairingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.pairings[r.ns]
	if req, ok := rows[publicKey]; ok {
		clone := *req
		return &clone, nil
	}
	req := &models.PairingRequest{PublicKey: publicKey, SupportsV2: supportsV2, CreatedAt: time.Now()}
	rows[publicKey] = req
	clone := *req
	return &clone, nil
}

func (r *memPairings) Find(ctx context.Context, publicKey string) (*models.PairingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.pairings[r.ns][publicKey]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *memPairings) Approve(ctx context.Context, publicKey string, response []byte, accountID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.pairings[r.ns][publicKey]
	if !ok {
		return false, common.ErrNotFound
	}
	if req.Response != nil {
		return false, nil
	}
	now := time.Now()
	req.Response = response
	req.ResponseAccountID = accountID
	req.AnsweredAt = &now
	return true, nil
}

type memCreds struct{ s *memStore }

func (r *memCreds) Put(ctx context.Context, accountID, name string, blob []byte) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.blobs[accountID+"/"+name] = blob
	return nil
}

func (r *memCreds) Get(ctx context.Context, accountID, name string) ([]byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	blob, ok := r.s.blobs[accountID+"/"+name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return blob, nil
}

type staticAuthenticator struct{ err error }

func (a *staticAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	return a.err
}

func newTestRouter(t *testing.T, store *memStore, dirErr error) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.MasterSecret = "test-master"
	cfg.TokenValidityDuration = time.Hour

	slogger := slog.New(slog.DiscardHandler)
	logger := logging.NewSlogLogger(slogger)

	authSvc := services.NewAuthService(nil, store, store.Credentials(nil), &staticAuthenticator{err: dirErr}, cfg, logger)
	terminal := services.NewPairingService(nil, store, pairings.Terminal, cfg, logger)
	account := services.NewPairingService(nil, store, pairings.Account, cfg, logger)

	srv := New(&ServerConfig{ListenAddr: ":0"}, cfg, slogger, logger, authSvc, terminal, account)
	return srv.srv.Handler
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/auth/ad", "",
		directoryLoginRequest{Username: `CORP\alice`, Password: "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res directoryLoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestDirectoryLoginEndpoint(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)
	token := loginToken(t, h)
	require.NotEmpty(t, token)
}

func TestDirectoryLoginEndpoint_BadCredentials(t *testing.T) {
	h := newTestRouter(t, newMemStore(), common.ErrInvalidCredentials)

	rec := doJSON(t, h, http.MethodPost, "/auth/ad", "",
		directoryLoginRequest{Username: `CORP\alice`, Password: "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var res directoryLoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Empty(t, res.Token)
}

func TestNASCredentialsEndpoint(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)
	token := loginToken(t, h)

	rec := doJSON(t, h, http.MethodGet, "/auth/ad/nas-credentials?username=CORP%5Calice", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res nasCredentialsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, "alice", res.Username)
	require.Equal(t, "pw1", res.Password)
}

func TestNASCredentialsEndpoint_NoToken(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)

	rec := doJSON(t, h, http.MethodGet, "/auth/ad/nas-credentials?username=alice", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNASCredentialsEndpoint_ForeignUsername(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)
	token := loginToken(t, h)

	// alice's token cannot open bob's entry
	rec := doJSON(t, h, http.MethodGet, "/auth/ad/nas-credentials?username=bob", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignatureLoginEndpoint(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	challenge := []byte("nonce-123")
	sig := ed25519.Sign(priv, challenge)

	rec := doJSON(t, h, http.MethodPost, "/auth", "", signatureLoginRequest{
		PublicKey: base64.StdEncoding.EncodeToString(pub),
		Challenge: base64.StdEncoding.EncodeToString(challenge),
		Signature: base64.StdEncoding.EncodeToString(sig),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res signatureLoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
}

func TestSignatureLoginEndpoint_BadEncoding(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)

	rec := doJSON(t, h, http.MethodPost, "/auth", "", signatureLoginRequest{
		PublicKey: "not base64!!",
		Challenge: base64.StdEncoding.EncodeToString([]byte("c")),
		Signature: base64.StdEncoding.EncodeToString(make([]byte, 64)),
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPairingEndpoints_FullFlow(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(t, store, nil)

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	keyHex := hex.EncodeToString(key)

	// register
	rec := doJSON(t, h, http.MethodPost, "/auth/request", "",
		pairingRequestRequest{PublicKey: keyHex, SupportsV2: true})
	require.Equal(t, http.StatusOK, rec.Code)

	var reqRes pairingRequestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqRes))
	require.Equal(t, "requested", reqRes.State)

	// status while pending
	rec = doJSON(t, h, http.MethodGet, "/auth/request/status?publicKey="+keyHex, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stRes pairingStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stRes))
	require.Equal(t, "pending", stRes.State)
	require.True(t, stRes.SupportsV2)

	// approve with an authenticated account
	token := loginToken(t, h)
	payload := []byte("boxed-response")
	rec = doJSON(t, h, http.MethodPost, "/auth/response", token, pairingResponseRequest{
		PublicKey: keyHex,
		Response:  base64.StdEncoding.EncodeToString(payload),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// poll again: authorized, payload and scoped token returned
	rec = doJSON(t, h, http.MethodPost, "/auth/request", "",
		pairingRequestRequest{PublicKey: keyHex, SupportsV2: true})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqRes))
	require.Equal(t, "authorized", reqRes.State)
	require.NotEmpty(t, reqRes.Token)
	got, err := base64.StdEncoding.DecodeString(reqRes.Response)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// account namespace is untouched
	rec = doJSON(t, h, http.MethodGet, "/auth/account/request/status?publicKey="+keyHex, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stRes))
	require.Equal(t, "not_found", stRes.State)
}

func TestPairingEndpoints_MalformedKey(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(t, store, nil)

	// 31 bytes: valid hex, wrong length
	short := hex.EncodeToString(make([]byte, 31))
	rec := doJSON(t, h, http.MethodPost, "/auth/request", "",
		pairingRequestRequest{PublicKey: short})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, store.pairings[pairings.Terminal])

	// not hex at all
	rec = doJSON(t, h, http.MethodPost, "/auth/request", "",
		pairingRequestRequest{PublicKey: "zz"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, store.pairings[pairings.Terminal])
}

func TestPairingEndpoints_RespondRequiresToken(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)

	rec := doJSON(t, h, http.MethodPost, "/auth/response", "", pairingResponseRequest{
		PublicKey: hex.EncodeToString(make([]byte, 32)),
		Response:  base64.StdEncoding.EncodeToString([]byte("x")),
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLivez(t *testing.T) {
	h := newTestRouter(t, newMemStore(), nil)

	rec := doJSON(t, h, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
