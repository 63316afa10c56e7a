// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

// Opt is one named option of a declaration.
type Opt struct {
	Key   string
	Value any
}

// Option sets an arbitrary option. Names the resolver does not know are
// logged and dropped.
func Option(key string, value any) Opt {
	return Opt{key, value}
}

// Permissions are required before the hook may fire.
func Permissions(perms ...string) Opt {
	return Opt{"permissions", perms}
}

// SingleThread allows at most one running invocation of the hook.
func SingleThread() Opt {
	return Opt{"singlethread", true}
}

func WithAction(a Action) Opt {
	return Opt{"action", a}
}

func WithPriority(p Priority) Opt {
	return Opt{"priority", p}
}

// Clients restricts the hook to connection types. It takes a string or a []string.
func Clients(clients any) Opt {
	return Opt{"clients", clients}
}

// InitialInterval is the wait in seconds before the first periodic run.
func InitialInterval(seconds float64) Opt {
	return Opt{"initial_interval", seconds}
}

// RunOnCmd lets a regex hook fire on messages that are also commands.
func RunOnCmd() Opt {
	return Opt{"run_on_cmd", true}
}

// OnlyNoMatch fires a regex hook only when no other hook handled the message.
func OnlyNoMatch() Opt {
	return Opt{"only_no_match", true}
}

// AutoHelp controls whether a command called without text gets its usage
// noticed instead of running.
func AutoHelp(on bool) Opt {
	return Opt{"autohelp", on}
}
