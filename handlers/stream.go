// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/metrics"
	"github.com/danielhkuo/rentradar/middleware"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/reports"
)

// Stream message types
const (
	StreamSnapshot = "snapshot"
	StreamRemoved  = "removed"
)

const (
	streamInitialLimit = maxListLimit
	writeWait          = 10 * time.Second
	pingPeriod         = 30 * time.Second
)

type StreamHandler struct {
	store    docstore.Store
	reports  *reports.Manager
	upgrader websocket.Upgrader
}

func NewStreamHandler(store docstore.Store, reports *reports.Manager) *StreamHandler {
	return &StreamHandler{
		store:   store,
		reports: reports,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// StreamReports handles GET /reports/stream
// Sends a snapshot of every visible report, then one message per change.
// Snapshots carry the derived display status. A report that is deleted,
// moderated or expired is sent as "removed". A client that falls too far
// behind is closed with CloseTryAgainLater and should reconnect.
func (h *StreamHandler) StreamReports(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before the initial read so no change in between is lost
	events, unsubscribe, err := h.store.Subscribe(ctx, models.CollectionReports, nil)
	if err != nil {
		middleware.ErrorFromErr(w, apperr.Store("subscribe reports", err))
		return
	}
	defer unsubscribe()

	initial, err := h.reports.ListVisible(ctx, streamInitialLimit)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	// Discard client messages; a read error means the client went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(msg models.StreamMessage) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	now := h.reports.Now()
	for _, rep := range initial {
		view := viewOf(rep, now)
		if err := send(models.StreamMessage{Type: StreamSnapshot, ReportID: rep.ID, Report: &view}); err != nil {
			slog.Warn("failed to send snapshot", "error", err)
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Warn("failed to ping stream client", "error", err)
				return
			}
		case evt, ok := <-events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "stream interrupted, reconnect")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if err := send(streamMessage(evt, h.reports.Now())); err != nil {
				slog.Warn("failed to send report update", "error", err)
				return
			}
		}
	}
}

// streamMessage turns a change into a frame. Reports that are deleted or no
// longer visible go out as "removed" without their content.
func streamMessage(evt docstore.Event, now time.Time) models.StreamMessage {
	if evt.Kind == docstore.EventDelete {
		return models.StreamMessage{Type: StreamRemoved, ReportID: evt.Document.ID}
	}
	view := viewOf(models.ReportFromDocument(evt.Document), now)
	if !view.Visible {
		return models.StreamMessage{Type: StreamRemoved, ReportID: view.ID}
	}
	return models.StreamMessage{Type: StreamSnapshot, ReportID: view.ID, Report: &view}
}
