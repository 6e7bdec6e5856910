package engine

import (
	"context"
	"errors"
	"testing"

	"sheetsync/internal/composio"
)

func TestAuthGate_Status(t *testing.T) {
	tests := []struct {
		name          string
		accounts      []composio.ConnectedAccount
		wantConnected bool
		wantAccount   string
	}{
		{
			name: "active googlesheets account",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "ACTIVE", ToolkitSlug: "googlesheets"},
			},
			wantConnected: true,
			wantAccount:   "a1",
		},
		{
			name:          "no accounts",
			accounts:      nil,
			wantConnected: false,
		},
		{
			name: "pending connection only",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "INITIATED", ToolkitSlug: "googlesheets"},
			},
			wantConnected: false,
		},
		{
			name: "other toolkit only",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "ACTIVE", ToolkitSlug: "slack"},
			},
			wantConnected: false,
		},
		{
			name: "active among inactive",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "EXPIRED", ToolkitSlug: "googlesheets"},
				{ID: "a2", Status: "ACTIVE", ToolkitSlug: "googlesheets"},
			},
			wantConnected: true,
			wantAccount:   "a2",
		},
		{
			name: "case insensitive status",
			accounts: []composio.ConnectedAccount{
				{ID: "a1", Status: "active", ToolkitSlug: "googlesheets"},
			},
			wantConnected: true,
			wantAccount:   "a1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConnector{accounts: tt.accounts}
			gate := NewAuthGate(conn, "googlesheets", "ac_test", quietLogger())

			status, err := gate.Status(context.Background())
			if err != nil {
				t.Fatalf("Status() error = %v", err)
			}
			if status.Connected != tt.wantConnected {
				t.Errorf("Connected = %v, want %v", status.Connected, tt.wantConnected)
			}
			if status.AccountID != tt.wantAccount {
				t.Errorf("AccountID = %q, want %q", status.AccountID, tt.wantAccount)
			}
		})
	}
}

func TestAuthGate_StatusError(t *testing.T) {
	conn := &fakeConnector{accountsErr: errors.New("api down")}
	gate := NewAuthGate(conn, "googlesheets", "ac_test", quietLogger())

	if _, err := gate.Status(context.Background()); err == nil {
		t.Error("Status() should propagate listing failures")
	}
}

func TestAuthGate_RemediationURL(t *testing.T) {
	conn := &fakeConnector{redirectURL: "https://connect.example/flow"}
	gate := NewAuthGate(conn, "googlesheets", "ac_gs_123", quietLogger())

	url, err := gate.RemediationURL(context.Background())
	if err != nil {
		t.Fatalf("RemediationURL() error = %v", err)
	}
	if url != "https://connect.example/flow" {
		t.Errorf("url = %q", url)
	}
	if len(conn.initiated) != 1 || conn.initiated[0] != "ac_gs_123" {
		t.Errorf("initiated with %v, want the auth config id", conn.initiated)
	}
}

func TestAuthGate_RemediationURLRequiresConfig(t *testing.T) {
	gate := NewAuthGate(&fakeConnector{}, "googlesheets", "", quietLogger())

	_, err := gate.RemediationURL(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
	if !IsConfiguration(err) {
		t.Error("IsConfiguration() = false, want true")
	}
}

func TestAuthGate_ToolkitCaseInsensitive(t *testing.T) {
	conn := &fakeConnector{accounts: []composio.ConnectedAccount{
		{ID: "a1", Status: "ACTIVE", ToolkitSlug: "googlesheets"},
	}}
	gate := NewAuthGate(conn, "GOOGLESHEETS", "ac_test", quietLogger())

	status, err := gate.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.Connected {
		t.Error("uppercase toolkit config should still match")
	}
}
