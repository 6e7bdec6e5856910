// Package dashboard provides event handling and message formatting for the dashboard.
package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"sheetsync/internal/engine"
)

// Handler subscribes to sync engine events and formats them as
// dashboard messages. It bridges between the engine's Notifier
// callbacks and the WebSocket server.
//
// The engine serializes sync passes, so Handler methods are never
// called concurrently and the statistics need no lock.
type Handler struct {
	server *Server
	logger *log.Logger

	// Statistics tracking
	stats *StatsData
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats:  &StatsData{},
	}
}

// OnSyncResult handles the end of a sync pass
func (h *Handler) OnSyncResult(result engine.SyncResult) {
	h.logger.Printf("Sync finished: %s (%d rows)", result.Status, result.RowCount)

	// Update statistics
	now := time.Now()
	h.stats.TotalSyncs++
	h.stats.LastStatus = result.Status.String()
	h.stats.LastSyncAt = &now

	switch result.Status {
	case engine.StatusOK:
		h.stats.Synced++
		h.stats.RowsSynced += result.RowCount
	case engine.StatusSkipped:
		h.stats.Skipped++
	case engine.StatusNeedsAuth:
		h.stats.NeedsAuth++
	case engine.StatusError:
		h.stats.Failed++
	}

	// Format sync result data
	data := SyncResultData{
		Status:         result.Status.String(),
		RowCount:       result.RowCount,
		SpreadsheetID:  result.SpreadsheetID,
		SpreadsheetURL: result.SpreadsheetURL,
		Message:        result.Message,
		DurationMs:     result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		data.Error = result.Err.Error()
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync result: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncResult,
		Timestamp: now,
		Data:      dataJSON,
	})

	// Also broadcast updated stats
	h.broadcastStats()
}

// OnAuthRequired handles a sync pass that found Google Sheets
// disconnected
func (h *Handler) OnAuthRequired(url string) {
	h.logger.Printf("Authorization required, redirect URL: %s", url)

	data := AuthStatusData{Connected: false, AuthURL: url}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal auth status: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeAuthStatus,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// broadcastStats sends current statistics to all clients
func (h *Handler) broadcastStats() {
	dataJSON, err := json.Marshal(h.stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
