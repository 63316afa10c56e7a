// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package notes keeps a per-user list of notes.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
	"github.com/velour/hookbase/schema"
)

type Note struct {
	ID    int64     `db:"note_id"`
	Text  string    `db:"text"`
	Added time.Time `db:"added"`
}

func (n Note) String() string {
	return fmt.Sprintf("\x02Note #%d:\x02 %s - \x02%s\x02", n.ID, n.Text, n.Added.Format("02 Jan, 2006"))
}

// request is one invocation of the notes command.
type request struct {
	ctx    context.Context
	ev     *event.Event
	db     *sqlx.DB
	server string
	user   string
	args   []string
}

type subcommand func(r request) (any, error)

var subcommands = map[string]subcommand{
	"get": getNote,

	"add": addNote,
	"new": addNote,

	"del":    delNote,
	"delete": delNote,
	"remove": delNote,

	"clear": clearNotes,

	"show":  showNote,
	"share": showNote,

	"list": func(r request) (any, error) { return listNotes(r, false) },

	"listall": func(r request) (any, error) { return listNotes(r, true) },
}

func New() *plugin.Unit {
	u := plugin.NewUnit("notes", "plugins/notes/notes.go")
	u.Table(schema.Base.Table("notes", []string{"note_id", "connection", "user"},
		schema.Col("note_id", schema.Integer),
		schema.Col("connection", schema.String),
		schema.Col("user", schema.String),
		schema.Col("text", schema.String),
		schema.Col("priority", schema.Integer),
		schema.Col("deleted", schema.Boolean),
		schema.Col("added", schema.DateTime),
	))
	u.Func(&hook.Func{
		Name:   "note",
		Params: []string{"text", "db", "conn", "nick", "event"},
		Doc:    "<add|list|get|del|clear> args - manipulates your list of notes",
		Fn:     note,
	}, hook.Command("note", "notes", "todo"))
	return u
}

func note(ctx context.Context, ev *event.Event) (any, error) {
	parts := strings.Fields(ev.Text)
	if len(parts) == 0 {
		return nil, ev.NoticeDoc()
	}

	cmd, args := strings.ToLower(parts[0]), parts[1:]
	if len(parts) == 1 && isDigits(parts[0]) {
		cmd, args = "get", parts
	}

	sub, ok := subcommands[cmd]
	if !ok {
		if err := ev.Notice(fmt.Sprintf("Unknown command: %s", cmd)); err != nil {
			return nil, err
		}
		return nil, ev.NoticeDoc()
	}
	return sub(request{
		ctx:    ctx,
		ev:     ev,
		db:     ev.Bot.DB(),
		server: ev.Conn.Name(),
		user:   strings.ToLower(ev.Nick),
		args:   args,
	})
}

func isDigits(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func readNote(r request) (*Note, error) {
	id, err := strconv.ParseInt(r.args[0], 10, 64)
	if err != nil {
		return nil, nil
	}
	n := &Note{}
	err = r.db.GetContext(r.ctx, n, `select note_id, text, added from notes
		where connection=? and user=? and note_id=?`, r.server, r.user, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func readAllNotes(r request, showDeleted bool) ([]Note, error) {
	q := `select note_id, text, added from notes where connection=? and user=?`
	if !showDeleted {
		q += ` and not deleted`
	}
	q += ` order by added`
	notes := []Note{}
	err := r.db.SelectContext(r.ctx, &notes, q, r.server, r.user)
	return notes, err
}

func addNote(r request) (any, error) {
	if len(r.args) == 0 {
		return "No text provided!", nil
	}
	tx, err := r.db.BeginTxx(r.ctx, nil)
	if err != nil {
		return nil, err
	}
	var maxID sql.NullInt64
	if err := tx.GetContext(r.ctx, &maxID, `select max(note_id) from notes where user=?`, r.user); err != nil {
		tx.Rollback()
		return nil, err
	}
	_, err = tx.ExecContext(r.ctx, `insert into notes (note_id, connection, user, text, deleted, added)
		values (?, ?, ?, ?, ?, ?)`,
		maxID.Int64+1, r.server, r.user, strings.Join(r.args, " "), false, time.Now())
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return nil, r.ev.Notice("Note added!")
}

func delNote(r request) (any, error) {
	if len(r.args) == 0 {
		return "No note ID provided!", nil
	}
	n, err := readNote(r)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, r.ev.Notice(fmt.Sprintf("#%s is not a valid note ID.", r.args[0]))
	}
	_, err = r.db.ExecContext(r.ctx, `update notes set deleted=? where connection=? and user=? and note_id=?`,
		true, r.server, r.user, n.ID)
	if err != nil {
		return nil, err
	}
	return nil, r.ev.Notice(fmt.Sprintf("Note #%d deleted!", n.ID))
}

func clearNotes(r request) (any, error) {
	_, err := r.db.ExecContext(r.ctx, `update notes set deleted=? where connection=? and user=?`,
		true, r.server, r.user)
	if err != nil {
		return nil, err
	}
	return nil, r.ev.Notice("All notes deleted!")
}

func getNote(r request) (any, error) {
	n, err := lookup(r)
	if n == nil || err != nil {
		return nil, err
	}
	return nil, r.ev.Notice(n.String())
}

func showNote(r request) (any, error) {
	n, err := lookup(r)
	if n == nil || err != nil {
		return nil, err
	}
	return n.String(), nil
}

// lookup reads the note named by the first argument, telling the user when
// there is no such note.
func lookup(r request) (*Note, error) {
	if len(r.args) == 0 {
		return nil, r.ev.Notice("No note ID provided!")
	}
	n, err := readNote(r)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, r.ev.Notice(fmt.Sprintf("%s is not a valid note ID.", r.args[0]))
	}
	return n, nil
}

func listNotes(r request, showDeleted bool) (any, error) {
	notes, err := readAllNotes(r, showDeleted)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, r.ev.Notice("You have no notes.")
	}
	if err := r.ev.Notice(fmt.Sprintf("All notes for %s:", r.ev.Nick)); err != nil {
		return nil, err
	}
	for _, n := range notes {
		if err := r.ev.Notice(n.String()); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
