package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/bitematch/internal/model"
	"github.com/dukerupert/bitematch/internal/plan"
	"github.com/dukerupert/bitematch/internal/shopping"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

const frameTypePlanSnapshot = "plan_snapshot"

// Frame is one message written to a plan socket.
type Frame struct {
	Type     string            `json:"type"`
	Entries  []model.PlanEntry `json:"entries"`
	Shopping ShoppingFrame     `json:"shopping"`
	Error    string            `json:"error,omitempty"`
}

type ShoppingFrame struct {
	Items []model.ShoppingItem `json:"items"`
	Text  string               `json:"text"`
}

// client streams plan snapshots to a single WebSocket connection.
type client struct {
	conn   *ws.Conn
	stream *plan.Stream
	opts   Options
	logger *slog.Logger
}

// run starts the write pump and runs the read pump. It blocks until the
// connection or the stream ends.
func (c *client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.stream.Close()

	go func() {
		c.readPump(ctx)
		cancel()
	}()
	c.writePump(ctx)
}

// readPump reads and discards all incoming messages. It returns on error
// (connection close), which triggers cleanup.
func (c *client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump writes one frame per snapshot and sends periodic pings to
// detect stale connections.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-c.stream.C():
			if !ok {
				return
			}
			msg, err := json.Marshal(c.frame(snap))
			if err != nil {
				c.logger.Error("encode frame", "error", err)
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err = c.conn.Write(wctx, ws.MessageText, msg)
			wcancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) frame(snap plan.Snapshot) Frame {
	f := Frame{
		Type:     frameTypePlanSnapshot,
		Entries:  []model.PlanEntry{},
		Shopping: ShoppingFrame{Items: []model.ShoppingItem{}},
	}
	if snap.Err != nil {
		f.Error = "could not load plan"
		return f
	}

	entries := snap.Entries
	if len(entries) > c.opts.ViewLimit {
		f.Entries = entries[:c.opts.ViewLimit]
	} else {
		f.Entries = entries
	}

	basket := entries
	if len(basket) > c.opts.ShoppingLimit {
		basket = basket[:c.opts.ShoppingLimit]
	}
	items := shopping.Aggregate(basket, shopping.Options{Locale: c.opts.Locale})
	f.Shopping = ShoppingFrame{
		Items: items,
		Text:  shopping.FormatPlain(items, shopping.FormatOptions{}),
	}
	return f
}
