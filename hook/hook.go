// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
)

// Owner is the plugin a hook belongs to. Hooks only refer to it; they do
// not keep it loaded.
type Owner interface {
	Title() string
	FileName() string
}

// Resolved is a hook of any kind.
type Resolved interface {
	Base() *Hook
	Description() string
	String() string
}

// Hook is one plugin function bound to one dispatch kind, with every option
// the dispatcher needs to call it.
type Hook struct {
	Kind           Kind
	Owner          Owner
	Func           *Func
	FunctionName   string
	RequiredParams []string
	Threading      Threading
	Permissions    []string
	SingleThread   bool
	Action         Action
	Priority       Priority
	// Clients restricts the hook to these connection types. Empty means all.
	Clients []string
}

func (h *Hook) Base() *Hook { return h }

// Description is plugin:function.
func (h *Hook) Description() string {
	if h.Owner == nil {
		return h.FunctionName
	}
	return fmt.Sprintf("%s:%s", h.Owner.Title(), h.FunctionName)
}

func (h *Hook) String() string {
	return fmt.Sprintf("%s %s from %s", h.Kind, h.FunctionName, h.fileName())
}

func (h *Hook) fileName() string {
	if h.Owner == nil {
		return "?"
	}
	return h.Owner.FileName()
}

// AllowsClient reports whether the hook may fire for a connection type.
func (h *Hook) AllowsClient(client string) bool {
	if len(h.Clients) == 0 {
		return true
	}
	for _, c := range h.Clients {
		if c == client {
			return true
		}
	}
	return false
}

type CommandHook struct {
	Hook
	Aliases   []string
	MainAlias string
	Doc       string
	AutoHelp  bool
}

func (h *CommandHook) String() string {
	return fmt.Sprintf("command %s (%s) from %s", h.FunctionName, strings.Join(h.Aliases, ","), h.fileName())
}

type RegexHook struct {
	Hook
	Regexes     []*regexp.Regexp
	RunOnCmd    bool
	OnlyNoMatch bool
}

func (h *RegexHook) String() string {
	pats := []string{}
	for _, re := range h.Regexes {
		pats = append(pats, re.String())
	}
	return fmt.Sprintf("regex %s [%s] from %s", h.FunctionName, strings.Join(pats, ", "), h.fileName())
}

type EventHook struct {
	Hook
	Types []event.Type
}

// Handles reports whether the hook listens for t.
func (h *EventHook) Handles(t event.Type) bool {
	for _, ht := range h.Types {
		if ht == t {
			return true
		}
	}
	return false
}

type RawHook struct {
	Hook
	Triggers []string
}

// IsCatchAll reports whether the hook wants every raw line.
func (h *RawHook) IsCatchAll() bool {
	for _, t := range h.Triggers {
		if t == "*" {
			return true
		}
	}
	return false
}

func (h *RawHook) String() string {
	return fmt.Sprintf("irc raw %s (%s) from %s", h.FunctionName, strings.Join(h.Triggers, ","), h.fileName())
}

type PeriodicHook struct {
	Hook
	// Interval and InitialInterval are in seconds.
	Interval        float64
	InitialInterval float64
}

func (h *PeriodicHook) Every() time.Duration {
	return time.Duration(h.Interval * float64(time.Second))
}

func (h *PeriodicHook) FirstAfter() time.Duration {
	return time.Duration(h.InitialInterval * float64(time.Second))
}

func (h *PeriodicHook) String() string {
	return fmt.Sprintf("periodic hook (%g seconds) %s from %s", h.Interval, h.FunctionName, h.fileName())
}

// CapHook is either an on_cap_ack or an on_cap_available hook.
type CapHook struct {
	Hook
	Caps []string
}

// Wants reports whether the hook is interested in capability c.
func (h *CapHook) Wants(c string) bool {
	for _, hc := range h.Caps {
		if strings.EqualFold(hc, c) {
			return true
		}
	}
	return false
}

type PermHook struct {
	Hook
	Perms []string
}

type SieveHook struct{ Hook }
type PostHookHook struct{ Hook }
type IrcOutHook struct{ Hook }
type OnStartHook struct{ Hook }
type OnStopHook struct{ Hook }
type OnConnectHook struct{ Hook }

// Resolve turns a declaration into the hook of its kind, owned by owner.
// Options the resolver does not recognise are logged and dropped.
func Resolve(owner Owner, d *Declaration) (Resolved, error) {
	opts := d.Options.clone()
	base, err := newHook(owner, d, opts)
	if err != nil {
		return nil, err
	}

	var out Resolved
	switch d.Kind {
	case KindCommand:
		autohelp, err := boolOpt(opts, "autohelp", true)
		if err != nil {
			return nil, base.optErr(err)
		}
		aliases, main := d.Aliases, d.MainAlias
		if len(aliases) == 0 {
			aliases, main = []string{d.Func.Name}, d.Func.Name
		}
		out = &CommandHook{
			Hook:      base,
			Aliases:   append([]string(nil), aliases...),
			MainAlias: main,
			Doc:       d.Doc,
			AutoHelp:  autohelp,
		}
	case KindRegex:
		runOnCmd, err := boolOpt(opts, "run_on_cmd", false)
		if err != nil {
			return nil, base.optErr(err)
		}
		onlyNoMatch, err := boolOpt(opts, "only_no_match", false)
		if err != nil {
			return nil, base.optErr(err)
		}
		out = &RegexHook{
			Hook:        base,
			Regexes:     append([]*regexp.Regexp(nil), d.Regexes...),
			RunOnCmd:    runOnCmd,
			OnlyNoMatch: onlyNoMatch,
		}
	case KindEvent:
		out = &EventHook{Hook: base, Types: append([]event.Type(nil), d.Types...)}
	case KindRaw:
		out = &RawHook{Hook: base, Triggers: append([]string(nil), d.Triggers...)}
	case KindPeriodic:
		initial, err := seconds(opts.pop("initial_interval", d.Interval))
		if err != nil {
			return nil, base.optErr(fmt.Errorf("initial_interval: %w", err))
		}
		out = &PeriodicHook{Hook: base, Interval: d.Interval, InitialInterval: initial}
	case KindCapAck, KindCapAvailable:
		out = &CapHook{Hook: base, Caps: append([]string(nil), d.Caps...)}
	case KindPermission:
		out = &PermHook{Hook: base, Perms: append([]string(nil), d.Perms...)}
	case KindSieve:
		out = &SieveHook{base}
	case KindPostHook:
		out = &PostHookHook{base}
	case KindIrcOut:
		out = &IrcOutHook{base}
	case KindOnStart:
		out = &OnStartHook{base}
	case KindOnStop:
		out = &OnStopHook{base}
	case KindOnConnect:
		out = &OnConnectHook{base}
	default:
		return nil, fmt.Errorf("unknown hook kind %q on %s", d.Kind, base.Description())
	}

	if len(opts) > 0 {
		log.Warn().
			Interface("options", map[string]any(opts)).
			Msgf("Ignoring extra args from %s", base.Description())
	}
	return out, nil
}

func newHook(owner Owner, d *Declaration, opts Options) (Hook, error) {
	h := Hook{
		Kind:           d.Kind,
		Owner:          owner,
		Func:           d.Func,
		FunctionName:   d.Func.Name,
		RequiredParams: d.Func.RequiredParams(),
		Threading:      RunOnWorker,
		Action:         Continue,
		Priority:       Normal,
	}
	if d.Func.Suspends {
		h.Threading = RunOnLoop
	}

	var err error
	if h.Permissions, err = stringsOpt(opts, "permissions"); err != nil {
		return h, h.optErr(err)
	}
	if h.SingleThread, err = boolOpt(opts, "singlethread", false); err != nil {
		return h, h.optErr(err)
	}
	switch a := opts.pop("action", Continue).(type) {
	case Action:
		h.Action = a
	default:
		return h, h.optErr(fmt.Errorf("action: unsupported value %T", a))
	}
	switch p := opts.pop("priority", Normal).(type) {
	case Priority:
		h.Priority = p
	case int:
		h.Priority = Priority(p)
	default:
		return h, h.optErr(fmt.Errorf("priority: unsupported value %T", p))
	}
	if h.Clients, err = stringsOpt(opts, "clients"); err != nil {
		return h, h.optErr(err)
	}
	return h, nil
}

func (h *Hook) optErr(err error) error {
	return fmt.Errorf("%s: bad option %w", h.Description(), err)
}

func boolOpt(opts Options, key string, fallback bool) (bool, error) {
	v, ok := opts.pop(key, fallback).(bool)
	if !ok {
		return fallback, fmt.Errorf("%s: want a bool", key)
	}
	return v, nil
}

// stringsOpt reads a string or a []string option as a list.
func stringsOpt(opts Options, key string) ([]string, error) {
	switch v := opts.pop(key, []string{}).(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := []string{}
		for _, s := range v {
			str, ok := s.(string)
			if !ok {
				return nil, fmt.Errorf("%s: unsupported element %T", key, s)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unsupported value %T", key, v)
	}
}
