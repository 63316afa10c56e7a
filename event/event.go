// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package event defines what the plugin host hands to a hook when it fires.
package event

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velour/hookbase/config"
)

// Type is the kind of IRC activity an event represents.
type Type int

const (
	Message Type = iota
	Action
	Notice
	Join
	Part
	Kick
	Other
)

var typeNames = map[Type]string{
	Message: "message",
	Action:  "action",
	Notice:  "notice",
	Join:    "join",
	Part:    "part",
	Kick:    "kick",
	Other:   "other",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Conn is a connection to a chat server as seen by hooks.
type Conn interface {
	Name() string
	// Type is the client type tag hooks can restrict themselves to, e.g. "irc".
	Type() string
	Nick() string
	Message(target, text string) error
	Notice(target, text string) error
	Action(target, text string) error
	Send(line string) error
}

// Bot is the slice of the host a hook may reach through an event.
type Bot interface {
	Config() *config.Config
	DB() *sqlx.DB
}

// HookRef names the hook an event is delivered to.
type HookRef interface {
	Description() string
}

type Event struct {
	ID   uuid.UUID
	Type Type
	Bot  Bot
	Conn Conn

	Nick string
	User string
	Host string
	Mask string
	Chan string

	Content    string
	ContentRaw string

	IrcRaw       string
	IrcCommand   string
	IrcParamList []string

	// Set for command hooks
	Text             string
	TriggeredCommand string
	Doc              string

	// Set for regex hooks
	Match []string

	// Set for cap hooks
	Cap string

	// Set for permission hooks
	Perm string

	Hook HookRef

	// Set for post hooks
	LaunchedHook  HookRef
	LaunchedEvent *Event
	Result        any
	Err           error
}

// New returns an event with a fresh ID.
func New(t Type, bot Bot, conn Conn) *Event {
	return &Event{
		ID:   uuid.New(),
		Type: t,
		Bot:  bot,
		Conn: conn,
	}
}

// Copy returns a shallow copy carrying a new ID, so per-hook fields can be
// set without touching the original.
func (e *Event) Copy() *Event {
	c := *e
	c.ID = uuid.New()
	if e.IrcParamList != nil {
		c.IrcParamList = append([]string(nil), e.IrcParamList...)
	}
	return &c
}

// Provides reports whether a hook parameter of the given name can be
// supplied from this event.
func (e *Event) Provides(param string) bool {
	switch param {
	case "event", "hook":
		return true
	case "bot":
		return e.Bot != nil
	case "db":
		return e.Bot != nil && e.Bot.DB() != nil
	case "conn":
		return e.Conn != nil
	case "reply", "message", "action", "notice":
		return e.Conn != nil && e.Chan != ""
	case "notice_doc":
		return e.Conn != nil && e.TriggeredCommand != ""
	case "nick":
		return e.Nick != ""
	case "user":
		return e.User != ""
	case "host":
		return e.Host != ""
	case "mask":
		return e.Mask != ""
	case "chan":
		return e.Chan != ""
	case "content":
		return e.Content != ""
	case "content_raw":
		return e.ContentRaw != ""
	case "irc_raw":
		return e.IrcRaw != ""
	case "irc_command":
		return e.IrcCommand != ""
	case "irc_paramlist":
		return e.IrcParamList != nil
	case "text", "triggered_command":
		return e.TriggeredCommand != ""
	case "match":
		return e.Match != nil
	case "cap":
		return e.Cap != ""
	case "perm":
		return e.Perm != ""
	case "launched_hook", "launched_event", "result", "error":
		return e.LaunchedHook != nil
	}
	return false
}

// Reply sends text to the event's channel, addressed to the sender when
// the channel is not a private query.
func (e *Event) Reply(text string) error {
	if e.Conn == nil {
		return fmt.Errorf("event has no connection")
	}
	target := e.Chan
	if strings.EqualFold(target, e.Nick) || !strings.HasPrefix(target, "#") {
		return e.Conn.Message(target, text)
	}
	return e.Conn.Message(target, fmt.Sprintf("(%s) %s", e.Nick, text))
}

// Message sends text to the event's channel.
func (e *Event) Message(text string) error {
	if e.Conn == nil {
		return fmt.Errorf("event has no connection")
	}
	return e.Conn.Message(e.Chan, text)
}

// Action sends a /me action to the event's channel.
func (e *Event) Action(text string) error {
	if e.Conn == nil {
		return fmt.Errorf("event has no connection")
	}
	return e.Conn.Action(e.Chan, text)
}

// Notice sends a notice to the event's nick.
func (e *Event) Notice(text string) error {
	if e.Conn == nil {
		return fmt.Errorf("event has no connection")
	}
	return e.Conn.Notice(e.Nick, text)
}

// NoticeDoc sends the triggered command's usage to the sender.
func (e *Event) NoticeDoc() error {
	if e.Doc == "" {
		return e.Notice(fmt.Sprintf("%s requires additional arguments.", e.TriggeredCommand))
	}
	prefix := "."
	if e.Bot != nil && e.Bot.Config() != nil {
		prefix = e.Bot.Config().GetArray("commandchar", []string{"."})[0]
	}
	// Old style docs start with the command name itself.
	if first := strings.Fields(e.Doc)[0]; isAlpha(first) {
		return e.Notice(prefix + e.Doc)
	}
	return e.Notice(fmt.Sprintf("%s%s %s", prefix, e.TriggeredCommand, e.Doc))
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
