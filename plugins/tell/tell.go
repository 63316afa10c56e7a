// Package tell holds messages for people until they next speak.
package tell

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
	"github.com/velour/hookbase/schema"
)

const maxQueued = 10

var validNick = regexp.MustCompile("^[A-Za-z_\\-\\[\\]\\\\^{}|`][A-Za-z0-9_\\-\\[\\]\\\\^{}|`]*$")

type delayedMsg struct {
	ID     int64     `db:"id"`
	Sender string    `db:"sender"`
	Text   string    `db:"message"`
	Sent   time.Time `db:"time_sent"`
}

func (m delayedMsg) String() string {
	return fmt.Sprintf("%s sent you a message %s ago: %s", m.Sender, since(m.Sent), m.Text)
}

// now is swapped out in tests
var now = time.Now

func since(t time.Time) string {
	d := now().Sub(t).Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	return strings.TrimSuffix(d.String(), "0s")
}

func New() *plugin.Unit {
	u := plugin.NewUnit("tell", "plugins/tell/tell.go")
	u.Table(schema.Base.Table("tells", nil,
		schema.Col("connection", schema.String),
		schema.Col("sender", schema.String),
		schema.Col("target", schema.String),
		schema.Col("message", schema.String),
		schema.Col("is_read", schema.Boolean),
		schema.Col("time_sent", schema.DateTime),
		schema.Col("time_read", schema.DateTime),
	))
	u.Func(&hook.Func{
		Name:   "tell_cmd",
		Params: []string{"text", "nick", "db", "conn", "event"},
		Doc:    "<nick> <message> - Relay <message> to <nick> when <nick> is around.",
		Fn:     tellCmd,
	}, hook.Command("tell"))
	u.Func(&hook.Func{
		Name:   "show_tells",
		Params: []string{"nick", "db", "conn", "event"},
		Doc:    "- View all pending tell messages (sent in a notice).",
		Fn:     showTells,
	}, hook.Command("showtells").With(hook.AutoHelp(false)))
	u.Func(&hook.Func{
		Name:   "tell_watch",
		Params: []string{"nick", "db", "conn", "event"},
		Fn:     deliver,
	}, hook.Event([]event.Type{event.Message, event.Action}).With(hook.WithPriority(hook.High)))
	return u
}

func network(ev *event.Event) string { return strings.ToLower(ev.Conn.Name()) }

func unread(ctx context.Context, db *sqlx.DB, conn, nick string) ([]delayedMsg, error) {
	msgs := []delayedMsg{}
	err := db.SelectContext(ctx, &msgs,
		`select rowid as id, sender, message, time_sent from tells
		where connection=? and target=? and is_read=0 order by time_sent, rowid`,
		conn, strings.ToLower(nick))
	return msgs, err
}

func markRead(ctx context.Context, db *sqlx.DB, ids ...int64) error {
	q, args, err := sqlx.In(`update tells set is_read=1, time_read=? where rowid in (?)`, now(), ids)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(q), args...)
	return err
}

func tellCmd(ctx context.Context, ev *event.Event) (any, error) {
	target, message, _ := strings.Cut(strings.TrimSpace(ev.Text), " ")
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ev.NoticeDoc()
	}

	switch {
	case strings.EqualFold(target, ev.Nick):
		return nil, ev.Notice("Have you looked in a mirror lately?")
	case strings.EqualFold(target, ev.Conn.Nick()):
		return nil, ev.Notice("Invalid nick '" + target + "'.")
	case !validNick.MatchString(target):
		return nil, ev.Notice("Invalid nick '" + target + "'.")
	}

	db := ev.Bot.DB()
	pending, err := unread(ctx, db, network(ev), target)
	if err != nil {
		return nil, err
	}
	if len(pending) >= maxQueued {
		return nil, ev.Notice(fmt.Sprintf("Sorry, %s has too many messages queued already.", target))
	}

	_, err = db.ExecContext(ctx,
		`insert into tells (connection, sender, target, message, is_read, time_sent) values (?, ?, ?, ?, 0, ?)`,
		network(ev), ev.Nick, strings.ToLower(target), message, now())
	if err != nil {
		return nil, err
	}
	return nil, ev.Notice(fmt.Sprintf("Your message has been saved, and %s will be notified once they are active.", target))
}

// deliver hands the oldest waiting message to someone who just spoke.
func deliver(ctx context.Context, ev *event.Event) (any, error) {
	if strings.Contains(strings.ToLower(ev.Content), "showtells") {
		return nil, nil
	}
	db := ev.Bot.DB()
	msgs, err := unread(ctx, db, network(ev), ev.Nick)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}

	reply := msgs[0].String()
	if more := len(msgs) - 1; more > 0 {
		reply += fmt.Sprintf(" (+%d more, .showtells to view)", more)
	}
	if err := markRead(ctx, db, msgs[0].ID); err != nil {
		return nil, err
	}
	return nil, ev.Notice(reply)
}

func showTells(ctx context.Context, ev *event.Event) (any, error) {
	db := ev.Bot.DB()
	msgs, err := unread(ctx, db, network(ev), ev.Nick)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ev.Notice("You have no pending messages.")
	}

	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		if err := ev.Notice(m.String()); err != nil {
			return nil, err
		}
		ids = append(ids, m.ID)
	}
	return nil, markRead(ctx, db, ids...)
}
