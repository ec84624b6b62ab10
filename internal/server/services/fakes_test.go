package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/dbx"
	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/dmitrijs2005/termbind/internal/server/config"
	"github.com/dmitrijs2005/termbind/internal/server/models"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/termbind/internal/server/repositories/pairings"
)

// --- shared fakes ---

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.MasterSecret = "master"
	cfg.TokenValidityDuration = time.Hour
	return cfg
}

type fakeAccountsRepo struct {
	upserted  []string
	upsertErr error
}

func (f *fakeAccountsRepo) Upsert(ctx context.Context, id string) (*models.Account, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserted = append(f.upserted, id)
	return &models.Account{ID: id, CreatedAt: time.Now(), LastLoginAt: time.Now()}, nil
}

func (f *fakeAccountsRepo) Get(ctx context.Context, id string) (*models.Account, error) {
	return &models.Account{ID: id}, nil
}

// fakePairingsRepo is an in-memory store with the same first-writer-wins
// semantics as the Postgres implementation.
type fakePairingsRepo struct {
	mu   sync.Mutex
	rows map[string]*models.PairingRequest

	getOrCreateErr error
	approveErr     error
}

func newFakePairingsRepo() *fakePairingsRepo {
	return &fakePairingsRepo{rows: map[string]*models.PairingRequest{}}
}

func (f *fakePairingsRepo) GetOrCreate(ctx context.Context, publicKey string, supportsV2 bool) (*models.PairingRequest, error) {
	if f.getOrCreateErr != nil {
		return nil, f.getOrCreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if req, ok := f.rows[publicKey]; ok {
		clone := *req
		return &clone, nil
	}
	req := &models.PairingRequest{PublicKey: publicKey, SupportsV2: supportsV2, CreatedAt: time.Now()}
	f.rows[publicKey] = req
	clone := *req
	return &clone, nil
}

func (f *fakePairingsRepo) Find(ctx context.Context, publicKey string) (*models.PairingRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.rows[publicKey]
	if !ok {
		return nil, common.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (f *fakePairingsRepo) Approve(ctx context.Context, publicKey string, response []byte, accountID string) (bool, error) {
	if f.approveErr != nil {
		return false, f.approveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.rows[publicKey]
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

type fakeCredsRepo struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
	getErr error
}

func newFakeCredsRepo() *fakeCredsRepo {
	return &fakeCredsRepo{blobs: map[string][]byte{}}
}

func (f *fakeCredsRepo) Put(ctx context.Context, accountID, name string, blob []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[accountID+"/"+name] = blob
	return nil
}

func (f *fakeCredsRepo) Get(ctx context.Context, accountID, name string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.blobs[accountID+"/"+name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return blob, nil
}

// fakeRepoManager vends the fakes above regardless of the DBTX handed in.
type fakeRepoManager struct {
	accounts *fakeAccountsRepo
	terminal *fakePairingsRepo
	account  *fakePairingsRepo
	creds    *fakeCredsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		accounts: &fakeAccountsRepo{},
		terminal: newFakePairingsRepo(),
		account:  newFakePairingsRepo(),
		creds:    newFakeCredsRepo(),
	}
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (f *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository { return f.accounts }

func (f *fakeRepoManager) Pairings(db dbx.DBTX, ns pairings.Namespace) pairings.Repository {
	if ns == pairings.Account {
		return f.account
	}
	return f.terminal
}

func (f *fakeRepoManager) Credentials(db dbx.DBTX) credentials.Repository { return f.creds }

type fakeAuthenticator struct {
	err  error
	seen []string
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	f.seen = append(f.seen, username)
	return f.err
}
