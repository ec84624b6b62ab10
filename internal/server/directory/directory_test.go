package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/logging"
	"github.com/stretchr/testify/require"
)

// recordLogger captures log calls for assertions.
type recordLogger struct {
	mu       sync.Mutex
	warnings []string
	errs     []string
}

func (l *recordLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (l *recordLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (l *recordLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, msg)
}
func (l *recordLogger) Error(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}
func (l *recordLogger) With(args ...any) logging.Logger { return l }

type fakeConn struct {
	bindErr  error
	bound    string
	password string
	closed   bool
}

func (c *fakeConn) Bind(username, password string) error {
	c.bound = username
	c.password = password
	return c.bindErr
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func testConfig(servers ...string) Config {
	return Config{
		Servers:     servers,
		ShortName:   "GS-AD",
		Domain:      "gs.example.org",
		BaseDN:      "dc=gs,dc=example,dc=org",
		DialTimeout: time.Second,
	}
}

func TestAuthenticate_FirstEndpointWins(t *testing.T) {
	conn := &fakeConn{}
	var dialed []string
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		dialed = append(dialed, addr)
		return conn, nil
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389", "dc2:389"), &recordLogger{}, dial)
	require.NoError(t, a.Authenticate(context.Background(), "alice", "pw"))
	require.Equal(t, []string{"dc1:389"}, dialed, "must not touch the second endpoint")
	require.Equal(t, `GS-AD\alice`, conn.bound)
	require.True(t, conn.closed, "connection must be released")
}

func TestAuthenticate_FailoverOnConnectionError(t *testing.T) {
	conn := &fakeConn{}
	log := &recordLogger{}
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		if addr == "dc1:389" {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389", "dc2:389"), log, dial)
	require.NoError(t, a.Authenticate(context.Background(), "alice", "pw"))
	require.Len(t, log.warnings, 1, "unreachable endpoint must log a warning")
	require.Empty(t, log.errs)
}

func TestAuthenticate_ClientPrefixStripped(t *testing.T) {
	conn := &fakeConn{}
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		return conn, nil
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389"), &recordLogger{}, dial)
	require.NoError(t, a.Authenticate(context.Background(), `EVIL-DOMAIN\alice`, "pw"))
	require.Equal(t, `GS-AD\alice`, conn.bound, "bind identity must use the configured short name")
}

func TestAuthenticate_BindFailureTriesNextReplica(t *testing.T) {
	conns := map[string]*fakeConn{
		"dc1:389": {bindErr: errors.New("invalid credentials")},
		"dc2:389": {},
	}
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		return conns[addr], nil
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389", "dc2:389"), &recordLogger{}, dial)
	require.NoError(t, a.Authenticate(context.Background(), "alice", "pw"))
	require.True(t, conns["dc1:389"].closed, "failed bind must still release the connection")
	require.True(t, conns["dc2:389"].closed)
}

func TestAuthenticate_AllBindsFail(t *testing.T) {
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		return &fakeConn{bindErr: errors.New("invalid credentials")}, nil
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389", "dc2:389"), &recordLogger{}, dial)
	err := a.Authenticate(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestAuthenticate_AllEndpointsUnreachable(t *testing.T) {
	log := &recordLogger{}
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		return nil, errors.New("connection refused")
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389", "dc2:389"), log, dial)
	err := a.Authenticate(context.Background(), "alice", "pw")

	// callers still see the generic credential failure
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	require.Len(t, log.warnings, 2)
	require.Len(t, log.errs, 1, "full exhaustion is an operational signal")
}

func TestAuthenticate_EmptyPasswordRejectedBeforeDial(t *testing.T) {
	dial := func(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
		t.Fatalf("must not dial with an empty password")
		return nil, nil
	}

	a := NewAuthenticatorWithDialer(testConfig("dc1:389"), &recordLogger{}, dial)
	require.ErrorIs(t, a.Authenticate(context.Background(), "alice", ""), common.ErrInvalidCredentials)
}
