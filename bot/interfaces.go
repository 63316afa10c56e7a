// © 2016 the CatBase Authors under the WTFPL license. See AUTHORS for the list of authors.

package bot

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/velour/hookbase/config"
	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

// Bot is what a connector needs from the plugin host.
type Bot interface {
	Config() *config.Config
	DB() *sqlx.DB

	// Submit queues an incoming event for the dispatch loop.
	Submit(ev *event.Event)
	// Outgoing passes a line about to be sent through the irc_out hooks.
	// It returns false if the line should be dropped.
	Outgoing(ctx context.Context, conn event.Conn, line string) (string, bool)
	Connected(ctx context.Context, conn event.Conn)
	CapAvailable(ctx context.Context, conn event.Conn, capability string) bool
	CapAck(ctx context.Context, conn event.Conn, capability string)
}

// Connector is a connection to a chat network.
type Connector interface {
	event.Conn
	// Serve connects and feeds events to the bot until ctx is done.
	Serve(ctx context.Context) error
}

// Source builds a fresh plugin unit every time it is called.
type Source func() *plugin.Unit

// HookInfo describes one registered hook for listings.
type HookInfo struct {
	Plugin      string    `json:"plugin"`
	Kind        hook.Kind `json:"kind"`
	Function    string    `json:"function"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	Aliases     []string  `json:"aliases,omitempty"`
}
