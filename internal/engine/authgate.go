package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"sheetsync/internal/composio"
)

// Connector is the slice of the Composio client the auth gate needs.
type Connector interface {
	ConnectedAccounts(ctx context.Context) ([]composio.ConnectedAccount, error)
	InitiateConnection(ctx context.Context, authConfigID string) (string, error)
}

// AuthStatus reports the state of the Google Sheets connection for the
// configured user.
type AuthStatus struct {
	Connected bool
	AccountID string
}

// AuthGate checks that an active toolkit connection exists before any
// sync touches the remote, and produces the OAuth URL that fixes a
// missing one.
type AuthGate struct {
	conn         Connector
	toolkit      string
	authConfigID string
	logger       *log.Logger
}

// NewAuthGate creates a gate for the given toolkit slug (for Google
// Sheets, "googlesheets"). authConfigID may be empty; remediation URLs
// are then unavailable but status checks still work.
func NewAuthGate(conn Connector, toolkit, authConfigID string, logger *log.Logger) *AuthGate {
	if logger == nil {
		logger = log.New(os.Stderr, "[auth] ", log.LstdFlags)
	}
	return &AuthGate{
		conn:         conn,
		toolkit:      strings.ToLower(toolkit),
		authConfigID: authConfigID,
		logger:       logger,
	}
}

// Status reports whether an active connection for the toolkit exists.
// Accounts in other states (INITIATED, EXPIRED, FAILED) do not count.
func (g *AuthGate) Status(ctx context.Context) (AuthStatus, error) {
	accounts, err := g.conn.ConnectedAccounts(ctx)
	if err != nil {
		return AuthStatus{}, fmt.Errorf("failed to check connected accounts: %w", err)
	}

	for _, acct := range accounts {
		if acct.ToolkitSlug != g.toolkit {
			continue
		}
		if acct.Active() {
			return AuthStatus{Connected: true, AccountID: acct.ID}, nil
		}
		g.logger.Printf("found %s account %s in state %s, ignoring", g.toolkit, acct.ID, acct.Status)
	}
	return AuthStatus{}, nil
}

// RemediationURL starts a connection attempt and returns the URL the
// user must open to authorize access.
func (g *AuthGate) RemediationURL(ctx context.Context) (string, error) {
	if g.authConfigID == "" {
		return "", fmt.Errorf("%w: auth config id is not set", ErrNotConfigured)
	}

	url, err := g.conn.InitiateConnection(ctx, g.authConfigID)
	if err != nil {
		return "", fmt.Errorf("failed to initiate connection: %w", err)
	}
	return url, nil
}
