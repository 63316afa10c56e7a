// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
	"github.com/velour/hookbase/schema"
)

// now is swapped out in tests
var now = time.Now

type Reminder struct {
	ID      int64     `db:"id"`
	Conn    string    `db:"connection"`
	From    string    `db:"sender"`
	Who     string    `db:"target"`
	What    string    `db:"message"`
	When    time.Time `db:"due"`
	Channel string    `db:"channel"`
}

func (r Reminder) String() string {
	if strings.EqualFold(r.From, r.Who) {
		return fmt.Sprintf("Hey %s, you wanted to be reminded: %s", r.Who, r.What)
	}
	return fmt.Sprintf("Hey %s, %s wanted you to be reminded: %s", r.Who, r.From, r.What)
}

type reminderPlugin struct {
	parser *when.Parser

	mu    sync.Mutex
	conns map[string]event.Conn
}

func New() *plugin.Unit {
	return newPlugin().unit()
}

func newPlugin() *reminderPlugin {
	p := &reminderPlugin{
		parser: when.New(nil),
		conns:  map[string]event.Conn{},
	}
	p.parser.Add(en.All...)
	p.parser.Add(common.All...)
	return p
}

func (p *reminderPlugin) unit() *plugin.Unit {
	u := plugin.NewUnit("reminder", "plugins/reminder/reminder.go")
	u.Table(schema.Base.Table("reminders", nil,
		schema.Col("connection", schema.String),
		schema.Col("sender", schema.String),
		schema.Col("target", schema.String),
		schema.Col("channel", schema.String),
		schema.Col("message", schema.String),
		schema.Col("due", schema.DateTime),
		schema.Col("sent", schema.Boolean),
	))
	u.Func(&hook.Func{
		Name:   "remind",
		Params: []string{"text", "nick", "chan", "conn", "db"},
		Doc:    "<user|me> <when> <message> - pester someone later, e.g. remind me in 10 minutes to stretch",
		Fn:     p.remind,
	}, hook.Command("remind"))
	u.Func(&hook.Func{
		Name:     "remember_conn",
		Params:   []string{"conn"},
		Suspends: true,
		Fn: func(ctx context.Context, ev *event.Event) (any, error) {
			p.track(ev.Conn)
			return nil, nil
		},
	}, hook.OnConnect())
	u.Func(&hook.Func{
		Name:   "deliver",
		Params: []string{"db"},
		Fn:     p.deliver,
	}, hook.Periodic(5).With(hook.InitialInterval(5)))
	return u
}

func (p *reminderPlugin) track(c event.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[strings.ToLower(c.Name())] = c
}

func (p *reminderPlugin) conn(name string) (event.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[name]
	return c, ok
}

// parseWhen finds the time in text and returns it with the rest of the text.
// Plain Go durations ("in 1h30m") work as well as English ("tomorrow at 5pm").
func (p *reminderPlugin) parseWhen(text string) (time.Time, string, bool) {
	base := now()
	fields := strings.Fields(text)
	if len(fields) >= 2 && strings.EqualFold(fields[0], "in") {
		if dur, err := time.ParseDuration(fields[1]); err == nil {
			return base.Add(dur), strings.Join(fields[2:], " "), true
		}
	}

	r, err := p.parser.Parse(text, base)
	if err != nil || r == nil {
		return time.Time{}, "", false
	}
	rest := text[:r.Index] + text[r.Index+len(r.Text):]
	return r.Time, strings.Join(strings.Fields(rest), " "), true
}

func (p *reminderPlugin) remind(ctx context.Context, ev *event.Event) (any, error) {
	p.track(ev.Conn)

	who, rest, _ := strings.Cut(strings.TrimSpace(ev.Text), " ")
	if strings.EqualFold(who, "me") {
		who = ev.Nick
	}
	due, what, ok := p.parseWhen(rest)
	if !ok {
		return "Easy cowboy, not sure I can parse that time.", nil
	}
	what = strings.TrimPrefix(what, "to ")
	if what == "" {
		return nil, ev.NoticeDoc()
	}
	if !due.After(now()) {
		return "That time is in the past.", nil
	}

	_, err := ev.Bot.DB().ExecContext(ctx,
		`insert into reminders (connection, sender, target, channel, message, due, sent) values (?, ?, ?, ?, ?, ?, 0)`,
		strings.ToLower(ev.Conn.Name()), ev.Nick, who, ev.Chan, what, due)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(who, ev.Nick) {
		return fmt.Sprintf("Sure %s, I'll remind you.", ev.Nick), nil
	}
	return fmt.Sprintf("Sure %s, I'll remind %s.", ev.Nick, who), nil
}

// deliver sends every reminder that has come due on a connection we know.
func (p *reminderPlugin) deliver(ctx context.Context, ev *event.Event) (any, error) {
	db := ev.Bot.DB()
	pending := []Reminder{}
	err := db.SelectContext(ctx, &pending,
		`select rowid as id, connection, sender, target, message, due, channel
		from reminders where sent=0 order by due, rowid`)
	if err != nil {
		return nil, err
	}

	for _, r := range pending {
		if r.When.After(now()) {
			continue
		}
		c, ok := p.conn(r.Conn)
		if !ok {
			continue
		}
		if err := c.Message(r.Channel, r.String()); err != nil {
			log.Error().Err(err).Msgf("Could not deliver reminder %d", r.ID)
			continue
		}
		if _, err := db.ExecContext(ctx, `update reminders set sent=1 where rowid=?`, r.ID); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
