// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import (
	"context"
	"strings"

	"github.com/velour/hookbase/event"
)

// Handler is the body of a plugin function.
//
// What the result means depends on the hook kind: commands and regex hooks
// reply with a non-empty string, sieves return the event to keep going or nil
// to block it, permission hooks return a bool and irc_out hooks return the
// (possibly rewritten) line or nil to drop it.
type Handler func(ctx context.Context, ev *event.Event) (any, error)

// Func is a plugin function that hooks can be declared on.
type Func struct {
	Name string
	// Params are the names the function expects from the event, in order.
	// Names starting with "_" are never supplied by the dispatcher.
	Params []string
	Doc    string
	// Suspends marks a function that never blocks; it runs on the dispatch
	// loop instead of the worker pool.
	Suspends bool
	Fn       Handler
}

// RequiredParams returns the params the dispatcher has to supply.
func (f *Func) RequiredParams() []string {
	out := []string{}
	for _, p := range f.Params {
		if !strings.HasPrefix(p, "_") {
			out = append(out, p)
		}
	}
	return out
}
