// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import "fmt"

// Kind is the dispatch category of a hook.
type Kind string

const (
	KindCommand      Kind = "command"
	KindRegex        Kind = "regex"
	KindEvent        Kind = "event"
	KindPeriodic     Kind = "periodic"
	KindRaw          Kind = "irc_raw"
	KindSieve        Kind = "sieve"
	KindPermission   Kind = "perm_check"
	KindPostHook     Kind = "post_hook"
	KindIrcOut       Kind = "irc_out"
	KindOnStart      Kind = "on_start"
	KindOnStop       Kind = "on_stop"
	KindOnConnect    Kind = "on_connect"
	KindCapAck       Kind = "on_cap_ack"
	KindCapAvailable Kind = "on_cap_available"
)

// Kinds lists every hook kind.
var Kinds = []Kind{
	KindCommand, KindRegex, KindEvent, KindPeriodic, KindRaw, KindSieve,
	KindPermission, KindPostHook, KindIrcOut, KindOnStart, KindOnStop,
	KindOnConnect, KindCapAck, KindCapAvailable,
}

// Priority orders hooks of the same kind. Lower values run first.
type Priority int

const (
	Lowest  Priority = 127
	Low     Priority = 64
	Normal  Priority = 0
	High    Priority = -64
	Highest Priority = -128
)

// Action tells the dispatcher what to do after a hook has run.
type Action int

const (
	// Continue lets other hooks run
	Continue Action = iota
	// HaltType stops the remaining hooks of the same kind
	HaltType
	// HaltAll stops every remaining hook for the event
	HaltAll
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case HaltType:
		return "halt_type"
	case HaltAll:
		return "halt_all"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Threading says where the dispatcher runs a hook.
type Threading int

const (
	// RunOnWorker hands the call to the worker pool so blocking work never
	// stalls the dispatch loop.
	RunOnWorker Threading = iota
	// RunOnLoop runs the call inline on the dispatch loop.
	RunOnLoop
)

func (t Threading) String() string {
	if t == RunOnLoop {
		return "loop"
	}
	return "worker"
}
