// Package directory validates username/password pairs against an external
// LDAP directory, failing over across an ordered list of endpoints.
package directory

import (
	"context"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/dmitrijs2005/termbind/internal/common"
	"github.com/dmitrijs2005/termbind/internal/cryptox"
	"github.com/dmitrijs2005/termbind/internal/logging"
)

// Config holds the externally supplied directory settings. Nothing here is
// ever hardcoded; see server config.
type Config struct {
	// Servers is the ordered endpoint list (host:port); the first
	// successful bind wins.
	Servers []string
	// ShortName is the NetBIOS-style domain prefix used for binds. The
	// configured value is always used, never a client-supplied prefix.
	ShortName string
	// Domain is the full domain name.
	Domain string
	// BaseDN is the directory search base.
	BaseDN string
	// DialTimeout bounds each connection attempt so one dead replica
	// cannot stall a login beyond a small multiple of this value.
	DialTimeout time.Duration
}

// Conn is the subset of *ldap.Conn the authenticator uses.
type Conn interface {
	Bind(username, password string) error
	Close() error
}

// Dialer opens a directory connection; a seam for tests.
type Dialer func(ctx context.Context, addr string, timeout time.Duration) (Conn, error)

func defaultDialer(ctx context.Context, addr string, timeout time.Duration) (Conn, error) {
	return ldap.DialURL("ldap://"+addr, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
}

// Authenticator performs simple binds with strictly sequential failover.
type Authenticator struct {
	cfg    Config
	dial   Dialer
	logger logging.Logger
}

// NewAuthenticator constructs an Authenticator for the given configuration.
func NewAuthenticator(cfg Config, logger logging.Logger) *Authenticator {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Authenticator{cfg: cfg, dial: defaultDialer, logger: logger}
}

// NewAuthenticatorWithDialer is NewAuthenticator with a custom dialer.
func NewAuthenticatorWithDialer(cfg Config, logger logging.Logger, dial Dialer) *Authenticator {
	a := NewAuthenticator(cfg, logger)
	a.dial = dial
	return a
}

// Authenticate validates the credentials against the configured endpoints in
// order. Any DOMAIN\ prefix on the username is stripped and the configured
// short name is used for the bind identity instead, so a client cannot
// redirect the bind to a different trust domain.
//
// Failures never reveal which stage failed: both a wrong password and full
// endpoint exhaustion surface as common.ErrInvalidCredentials. Connection
// failures are logged per endpoint; if no endpoint was reachable at all,
// that is additionally logged as common.ErrUpstreamUnavailable.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) error {
	user := cryptox.NormalizeUsername(username)
	// An empty password would turn the simple bind into an anonymous bind,
	// which some servers report as success.
	if user == "" || password == "" {
		return common.ErrInvalidCredentials
	}

	bindName := a.cfg.ShortName + `\` + user

	connFailures := 0
	for _, server := range a.cfg.Servers {
		conn, err := a.dial(ctx, server, a.cfg.DialTimeout)
		if err != nil {
			connFailures++
			a.logger.Warn(ctx, "directory endpoint unreachable", "server", server, "err", err)
			continue
		}

		bindErr := conn.Bind(bindName, password)
		// Always release the connection, bind outcome notwithstanding;
		// close errors carry no signal we can act on.
		_ = conn.Close()

		if bindErr == nil {
			return nil
		}
		// Move to the next replica on any bind failure; replicas share one
		// directory, and a flaky replica must not lock a user out.
		a.logger.Debug(ctx, "directory bind rejected", "server", server)
	}

	if len(a.cfg.Servers) > 0 && connFailures == len(a.cfg.Servers) {
		a.logger.Error(ctx, "directory exhausted", "err", common.ErrUpstreamUnavailable)
	}
	return common.ErrInvalidCredentials
}
