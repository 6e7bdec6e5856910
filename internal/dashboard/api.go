package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"sheetsync/internal/history"
)

// StatusResponse is the payload for GET /api/status.
type StatusResponse struct {
	Connected      bool             `json:"connected"`
	AccountID      string           `json:"account_id,omitempty"`
	AuthURL        string           `json:"auth_url,omitempty"`
	SpreadsheetURL string           `json:"spreadsheet_url,omitempty"`
	History        *history.Summary `json:"history,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// handleStatus reports connection state, the spreadsheet URL, and
// aggregate sync history.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{}

	if s.controller != nil {
		status, authURL, err := s.controller.CheckAuth(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Sprintf("auth check failed: %v", err))
			return
		}
		resp.Connected = status.Connected
		resp.AccountID = status.AccountID
		resp.AuthURL = authURL

		// No spreadsheet yet is a normal state, not an error
		if url, err := s.controller.SheetURL(); err == nil {
			resp.SpreadsheetURL = url
		}
	}

	if s.history != nil {
		if summary, err := s.history.Summarize(r.Context()); err == nil {
			resp.History = &summary
		} else {
			s.logger.Printf("Failed to summarize history: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleConnect starts the OAuth flow and returns the redirect URL the
// user must open to authorize Google Sheets access.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	if s.controller == nil {
		writeError(w, http.StatusServiceUnavailable, "sync engine is not wired")
		return
	}

	url, err := s.controller.AuthURL(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to create connection: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"redirect_url": url})
}

// handleSync queues a sync pass.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "no sync trigger is wired")
		return
	}

	s.trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleHistory lists recent sync runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history store is not wired")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.history.ListRunsContext(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, runs)
}
