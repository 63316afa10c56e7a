// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package perks tracks which supporter perks each account has and lets
// people toggle the user modes those perks buy them.
package perks

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
	"github.com/velour/hookbase/schema"
)

// ManagePerks is the permission needed to change anyone's perks.
const ManagePerks = "manage_patron"

func New() *plugin.Unit {
	u := plugin.NewUnit("perks", "plugins/perks/perks.go")
	u.Table(schema.Base.Table("user_perks", []string{"network", "user", "perk"},
		schema.Col("network", schema.String),
		schema.Col("user", schema.String),
		schema.Col("perk", schema.String),
	))

	manage := hook.Permissions(ManagePerks)
	u.Func(&hook.Func{
		Name:   "add_perk",
		Params: []string{"db", "conn", "text", "event"},
		Doc:    "<account> <perk> [perk2] ... - Add a patreon perk for a user's account",
		Fn:     addPerks,
	}, hook.Command("addperk").With(manage))
	u.Func(&hook.Func{
		Name:   "list_perks",
		Params: []string{"db", "conn", "text"},
		Doc:    "<account> - List the perks <account> currently has",
		Fn:     listPerks,
	}, hook.Command("listperks").With(manage))
	u.Func(&hook.Func{
		Name:   "del_perk",
		Params: []string{"db", "conn", "text", "event"},
		Doc:    "<account> <perk> [perk2] ... - Remove a patreon perk from a user's account",
		Fn:     delPerks,
	}, hook.Command("delperk").With(manage))
	u.Func(&hook.Func{
		Name:   "clear_perks",
		Params: []string{"db", "conn", "text"},
		Doc:    "<account> - Remove all perks from <account>",
		Fn:     clearPerks,
	}, hook.Command("clearperks").With(manage))

	u.Func(&hook.Func{
		Name:   "hide_idle",
		Params: []string{"db", "nick", "conn", "bot"},
		Doc:    "- Add the hideidle mode to yourself",
		Fn:     func(ctx context.Context, ev *event.Event) (any, error) { return setMode(ctx, ev, "hideidle", "+a") },
	}, hook.Command("hidle").With(hook.AutoHelp(false), hook.Clients("irc")))
	u.Func(&hook.Func{
		Name:   "show_idle",
		Params: []string{"db", "nick", "conn", "bot"},
		Doc:    "- Remove the hideidle mode from yourself",
		Fn:     func(ctx context.Context, ev *event.Event) (any, error) { return setMode(ctx, ev, "showidle", "-a") },
	}, hook.Command("showidle").With(hook.AutoHelp(false), hook.Clients("irc")))
	return u
}

func userPerks(ctx context.Context, db *sqlx.DB, network, user string) ([]string, error) {
	perks := []string{}
	err := db.SelectContext(ctx, &perks,
		`select perk from user_perks where network=? and user=? order by perk`,
		strings.ToLower(network), strings.ToLower(user))
	return perks, err
}

func hasPerk(ctx context.Context, db *sqlx.DB, network, user, perk string) (bool, error) {
	n := 0
	err := db.GetContext(ctx, &n,
		`select count(*) from user_perks where network=? and user=? and perk=?`,
		strings.ToLower(network), strings.ToLower(user), strings.ToLower(perk))
	return n > 0, err
}

// split breaks "<account> <perk>..." apart, noticing the usage when there
// are no perks.
func split(ev *event.Event) (string, []string, bool) {
	fields := strings.Fields(ev.Text)
	if len(fields) < 2 {
		if err := ev.NoticeDoc(); err != nil {
			log.Error().Err(err).Msg("Could not send perks usage")
		}
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

func addPerks(ctx context.Context, ev *event.Event) (any, error) {
	account, perks, ok := split(ev)
	if !ok {
		return nil, nil
	}
	db, network := ev.Bot.DB(), ev.Conn.Name()

	added := []string{}
	for _, perk := range perks {
		has, err := hasPerk(ctx, db, network, account, perk)
		if err != nil {
			return nil, err
		}
		if has {
			if err := ev.Reply(fmt.Sprintf("%q already has the perk %q", account, perk)); err != nil {
				return nil, err
			}
			continue
		}
		_, err = db.ExecContext(ctx, `insert into user_perks (network, user, perk) values (?, ?, ?)`,
			strings.ToLower(network), strings.ToLower(account), strings.ToLower(perk))
		if err != nil {
			return nil, err
		}
		added = append(added, perk)
	}

	switch len(added) {
	case 0:
		return nil, nil
	case 1:
		return fmt.Sprintf("Added %q perk to %q", added[0], account), nil
	}
	return fmt.Sprintf("Added perks: %q to %q", added, account), nil
}

func listPerks(ctx context.Context, ev *event.Event) (any, error) {
	user := strings.TrimSpace(ev.Text)
	perks, err := userPerks(ctx, ev.Bot.DB(), ev.Conn.Name(), user)
	if err != nil {
		return nil, err
	}
	if len(perks) == 0 {
		return fmt.Sprintf("%q has no perks", user), nil
	}
	return fmt.Sprintf("%q has perks: %q", user, perks), nil
}

func delPerks(ctx context.Context, ev *event.Event) (any, error) {
	account, perks, ok := split(ev)
	if !ok {
		return nil, nil
	}
	db, network := ev.Bot.DB(), ev.Conn.Name()

	removed := []string{}
	for _, perk := range perks {
		res, err := db.ExecContext(ctx, `delete from user_perks where network=? and user=? and perk=?`,
			strings.ToLower(network), strings.ToLower(account), strings.ToLower(perk))
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if err := ev.Reply(fmt.Sprintf("%q doesn't have the perk %q", account, perk)); err != nil {
				return nil, err
			}
			continue
		}
		removed = append(removed, perk)
	}

	switch len(removed) {
	case 0:
		return nil, nil
	case 1:
		return fmt.Sprintf("Removed %q perk from %q", removed[0], account), nil
	}
	return fmt.Sprintf("Removed perks: %q from %q", removed, account), nil
}

func clearPerks(ctx context.Context, ev *event.Event) (any, error) {
	user := strings.TrimSpace(ev.Text)
	_, err := ev.Bot.DB().ExecContext(ctx, `delete from user_perks where network=? and user=?`,
		strings.ToLower(ev.Conn.Name()), strings.ToLower(user))
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Cleared all perks from %q", user), nil
}

func setMode(ctx context.Context, ev *event.Event, perk, mode string) (any, error) {
	has, err := hasPerk(ctx, ev.Bot.DB(), ev.Conn.Name(), ev.Nick, perk)
	if err != nil {
		return nil, err
	}
	if !has {
		msg := ev.Bot.Config().Get("perks.noperkmsg", "No message configured (missing perk {perk_name})")
		return strings.ReplaceAll(msg, "{perk_name}", perk), nil
	}
	if err := ev.Conn.Send(fmt.Sprintf("SAMODE %s %s", ev.Nick, mode)); err != nil {
		return nil, err
	}
	return "Done", nil
}
