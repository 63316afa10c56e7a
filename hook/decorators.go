// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import (
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/velour/hookbase/event"
)

// Decorator is one hook declaration waiting to be applied to a function.
// Create them with the registration functions (Command, Regex, ...) and
// attach them with Registry.Apply.
type Decorator struct {
	kind Kind
	err  error
	opts []Opt
	add  func(*Declaration) error
}

// Kind returns the kind this decorator declares.
func (d Decorator) Kind() Kind {
	return d.kind
}

// Err reports a misuse detected when the decorator was built.
func (d Decorator) Err() error {
	return d.err
}

// With returns a copy of d carrying the given options.
func (d Decorator) With(opts ...Opt) Decorator {
	d.opts = append(append([]Opt(nil), d.opts...), opts...)
	return d
}

func misuse(kind Kind) Decorator {
	return Decorator{kind: kind, err: &UsageError{Kind: kind}}
}

func isCallable(v any) bool {
	switch v.(type) {
	case *Func, Func, Handler:
		return true
	}
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

var validCommand = regexp.MustCompile(`^\w+$`)

// Command declares a command hook. With no aliases the function's own name
// is the command.
func Command(aliases ...string) Decorator {
	return Decorator{
		kind: KindCommand,
		add: func(d *Declaration) error {
			names := aliases
			if len(names) == 0 {
				names = []string{d.Func.Name}
			}
			for _, a := range names {
				if !validCommand.MatchString(a) {
					return &InvalidNameError{Alias: a, Func: d.Func.Name}
				}
			}
			if d.MainAlias == "" {
				d.MainAlias = names[0]
			}
			d.Aliases = addUnique(d.Aliases, names...)
			return nil
		},
	}
}

// Regex declares a regex hook. param is a pattern string, a compiled
// *regexp.Regexp or a slice of either.
func Regex(param any) Decorator {
	if isCallable(param) {
		return misuse(KindRegex)
	}
	return Decorator{
		kind: KindRegex,
		add: func(d *Declaration) error {
			res, err := compileAll(param)
			if err != nil {
				return fmt.Errorf("regex hook on %s: %w", d.Func.Name, err)
			}
			d.Regexes = append(d.Regexes, res...)
			return nil
		},
	}
}

func compileAll(param any) ([]*regexp.Regexp, error) {
	switch p := param.(type) {
	case string:
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		return []*regexp.Regexp{re}, nil
	case *regexp.Regexp:
		return []*regexp.Regexp{p}, nil
	case []string:
		out := []*regexp.Regexp{}
		for _, s := range p {
			re, err := regexp.Compile(s)
			if err != nil {
				return nil, err
			}
			out = append(out, re)
		}
		return out, nil
	case []*regexp.Regexp:
		return append([]*regexp.Regexp(nil), p...), nil
	case []any:
		out := []*regexp.Regexp{}
		for _, v := range p {
			switch v.(type) {
			case string, *regexp.Regexp:
			default:
				return nil, fmt.Errorf("unsupported pattern %T", v)
			}
			res, err := compileAll(v)
			if err != nil {
				return nil, err
			}
			out = append(out, res...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported pattern %T", param)
}

// Event declares an event hook for an event.Type or a []event.Type.
func Event(types any) Decorator {
	if isCallable(types) {
		return misuse(KindEvent)
	}
	return Decorator{
		kind: KindEvent,
		add: func(d *Declaration) error {
			switch t := types.(type) {
			case event.Type:
				d.Types = addUnique(d.Types, t)
			case []event.Type:
				d.Types = addUnique(d.Types, t...)
			default:
				return fmt.Errorf("event hook on %s: unsupported event types %T", d.Func.Name, types)
			}
			return nil
		},
	}
}

// IrcRaw declares a raw hook for an IRC command or a []string of them.
// The trigger "*" matches every line.
func IrcRaw(triggers any) Decorator {
	if isCallable(triggers) {
		return misuse(KindRaw)
	}
	return Decorator{
		kind: KindRaw,
		add: func(d *Declaration) error {
			switch t := triggers.(type) {
			case string:
				d.Triggers = addUnique(d.Triggers, t)
			case []string:
				d.Triggers = addUnique(d.Triggers, t...)
			default:
				return fmt.Errorf("irc_raw hook on %s: unsupported triggers %T", d.Func.Name, triggers)
			}
			return nil
		},
	}
}

// Periodic declares a hook that runs every interval seconds. interval may
// be an int, a float64 or a time.Duration. A zero interval keeps the default.
func Periodic(interval any) Decorator {
	if isCallable(interval) {
		return misuse(KindPeriodic)
	}
	return Decorator{
		kind: KindPeriodic,
		add: func(d *Declaration) error {
			secs, err := seconds(interval)
			if err != nil {
				return fmt.Errorf("periodic hook on %s: %w", d.Func.Name, err)
			}
			if secs != 0 {
				d.Interval = secs
			}
			return nil
		},
	}
}

func seconds(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case time.Duration:
		return n.Seconds(), nil
	}
	return 0, fmt.Errorf("unsupported interval %T", v)
}

// Sieve declares a sieve. Sieves take exactly three params: bot, event and hook.
func Sieve() Decorator {
	return Decorator{
		kind: KindSieve,
		add: func(d *Declaration) error {
			if n := len(d.Func.Params); n != 3 {
				return &ArityError{Func: d.Func.Name, Got: n}
			}
			return nil
		},
	}
}

// Permission declares a permission check hook for the given permissions.
func Permission(perms ...string) Decorator {
	return Decorator{
		kind: KindPermission,
		add: func(d *Declaration) error {
			d.Perms = addUnique(d.Perms, perms...)
			return nil
		},
	}
}

func OnStart() Decorator {
	return Decorator{kind: KindOnStart}
}

// OnLoad is the same as OnStart.
func OnLoad() Decorator {
	return OnStart()
}

func OnStop() Decorator {
	return Decorator{kind: KindOnStop}
}

// OnUnload is the same as OnStop.
func OnUnload() Decorator {
	return OnStop()
}

func OnConnect() Decorator {
	return Decorator{kind: KindOnConnect}
}

// Connect is the same as OnConnect.
func Connect() Decorator {
	return OnConnect()
}

// IrcOut declares a hook that sees every outgoing line.
func IrcOut() Decorator {
	return Decorator{kind: KindIrcOut}
}

// PostHook declares a hook that runs right after any other hook finishes.
func PostHook() Decorator {
	return Decorator{kind: KindPostHook}
}

// OnCapAvailable fires for each listed capability the server offers in CAP LS.
func OnCapAvailable(caps ...string) Decorator {
	return capDecorator(KindCapAvailable, caps)
}

// OnCapAck fires for each listed capability the server acknowledges.
func OnCapAck(caps ...string) Decorator {
	return capDecorator(KindCapAck, caps)
}

func capDecorator(kind Kind, caps []string) Decorator {
	return Decorator{
		kind: kind,
		add: func(d *Declaration) error {
			d.Caps = addUnique(d.Caps, caps...)
			return nil
		},
	}
}
