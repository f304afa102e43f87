package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/bitematch/internal/auth"
	"github.com/dukerupert/bitematch/internal/plan"
)

// Watcher opens plan snapshot streams.
type Watcher interface {
	Watch(ctx context.Context, userID int64, limit int) *plan.Stream
}

type Options struct {
	// ViewLimit is the default number of plan entries per frame. The
	// limit query parameter overrides it.
	ViewLimit int
	// ShoppingLimit is how many of the newest entries feed the shopping list.
	ShoppingLimit int
	// Locale orders shopping items.
	Locale string
	// OriginPatterns lists extra hosts allowed to open the socket from a
	// browser. Same-origin requests and clients without an Origin header
	// are always accepted.
	OriginPatterns []string
}

// HandlePlan returns an HTTP handler that upgrades connections to WebSocket
// and streams the caller's plan and shopping list.
func HandlePlan(watcher Watcher, opts Options, logger *slog.Logger) http.HandlerFunc {
	if opts.ViewLimit < 1 {
		opts.ViewLimit = plan.DefaultCap
	}
	if opts.ShoppingLimit < 1 {
		opts.ShoppingLimit = 5
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		connOpts := opts
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			connOpts.ViewLimit = n
		}

		// The socket is authenticated by the session cookie, so cross-site
		// pages must not be able to open it.
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		watchLimit := max(connOpts.ViewLimit, connOpts.ShoppingLimit)
		c := &client{
			conn:   conn,
			stream: watcher.Watch(r.Context(), id.UserID, watchLimit),
			opts:   connOpts,
			logger: logger,
		}
		c.run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}
