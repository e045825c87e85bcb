package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/cloudsaver/cloudsaver/internal/contacts"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The token already gates the stream; the browser origin adds nothing
		// for a bearer-token API.
		return true
	},
}

type snapshotFrame struct {
	Sort     contacts.SortKey   `json:"sort"`
	Contacts []contacts.Contact `json:"contacts"`
}

type controlFrame struct {
	Sort string `json:"sort"`
}

// Stream pushes the owner's contact list over a WebSocket: one full snapshot
// immediately, then one after every change. A client frame {"sort": "date"}
// switches ordering; the server cancels the running subscription and opens a
// new one, so at most one subscription is live per connection.
func (h *ContactsHandler) Stream(c echo.Context) error {
	sess, err := requireSession(c)
	if err != nil {
		return err
	}
	sortKey, err := contacts.ParseSortKey(c.QueryParam("sort"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sortChanges := make(chan contacts.SortKey, 1)
	go readControlFrames(conn, sortChanges, cancel)

	for {
		sub, err := h.service.Subscribe(ctx, sess.UserID, sortKey)
		if err != nil {
			h.logger.Error("contact stream subscribe failed",
				slog.String("user_id", sess.UserID),
				slog.Any("error", err))
			return nil
		}
		next, resubscribe := pumpSnapshots(ctx, conn, sub, sortKey, sortChanges)
		sub.Cancel()
		if !resubscribe {
			return nil
		}
		sortKey = next
	}
}

// pumpSnapshots forwards snapshots until the connection dies, the context is
// cancelled, or the client asks for a different sort key.
func pumpSnapshots(ctx context.Context, conn *websocket.Conn, sub *contacts.Subscription, key contacts.SortKey, sortChanges <-chan contacts.SortKey) (contacts.SortKey, bool) {
	for {
		select {
		case <-ctx.Done():
			return "", false
		case next := <-sortChanges:
			return next, true
		case snapshot, ok := <-sub.C:
			if !ok {
				return "", false
			}
			if err := conn.WriteJSON(snapshotFrame{Sort: key, Contacts: snapshot}); err != nil {
				return "", false
			}
		}
	}
}

// readControlFrames drains the client side of the socket. Unparseable frames
// and unknown sort keys are dropped; a read error ends the stream.
func readControlFrames(conn *websocket.Conn, sortChanges chan<- contacts.SortKey, cancel context.CancelFunc) {
	defer cancel()
	for {
		var frame controlFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		key, err := contacts.ParseSortKey(frame.Sort)
		if err != nil {
			continue
		}
		select {
		case sortChanges <- key:
		default:
		}
	}
}
