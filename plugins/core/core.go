// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package core holds the hooks every bot wants: joining channels, ignoring
// people, admin permissions and a few commands to steer the bot from chat.
package core

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

// BotControl is the permission guarding the commands in this package.
const BotControl = "botcontrol"

type reloader interface {
	ReloadTitle(ctx context.Context, title string) error
}

func New() *plugin.Unit {
	u := plugin.NewUnit("core", "plugins/core/core.go")

	u.Func(&hook.Func{
		Name:   "join_channels",
		Params: []string{"conn", "bot"},
		Fn:     joinChannels,
	}, hook.OnConnect())

	u.Func(&hook.Func{
		Name:     "ignore_sieve",
		Params:   []string{"bot", "event", "hook"},
		Suspends: true,
		Fn:       ignoreSieve,
	}, hook.Sieve())

	u.Func(&hook.Func{
		Name:     "check_admin",
		Params:   []string{"bot", "event", "perm"},
		Suspends: true,
		Fn:       checkAdmin,
	}, hook.Permission())

	u.Func(&hook.Func{
		Name:   "invite",
		Params: []string{"conn", "irc_paramlist", "bot"},
		Fn:     invite,
	}, hook.IrcRaw("INVITE"))

	u.Func(&hook.Func{
		Name:   "join",
		Params: []string{"text", "conn"},
		Doc:    "<#channel> - joins <#channel>",
		Fn:     join,
	}, hook.Command("join").With(hook.Permissions(BotControl)))

	u.Func(&hook.Func{
		Name:   "part",
		Params: []string{"text", "conn", "chan"},
		Doc:    "[#channel] - leaves [#channel], or the current channel",
		Fn:     part,
	}, hook.Command("part", "leave").With(hook.Permissions(BotControl), hook.AutoHelp(false)))

	u.Func(&hook.Func{
		Name:   "ignore",
		Params: []string{"text", "bot"},
		Doc:    "<nick> - stops listening to <nick>",
		Fn:     func(ctx context.Context, ev *event.Event) (any, error) { return setIgnored(ev, true) },
	}, hook.Command("ignore").With(hook.Permissions(BotControl)))

	u.Func(&hook.Func{
		Name:   "unignore",
		Params: []string{"text", "bot"},
		Doc:    "<nick> - listens to <nick> again",
		Fn:     func(ctx context.Context, ev *event.Event) (any, error) { return setIgnored(ev, false) },
	}, hook.Command("unignore").With(hook.Permissions(BotControl)))

	u.Func(&hook.Func{
		Name:   "reload",
		Params: []string{"text", "bot"},
		Doc:    "<plugin> - reloads <plugin>",
		Fn:     reload,
	}, hook.Command("reload").With(hook.Permissions(BotControl)))

	return u
}

func joinChannels(ctx context.Context, ev *event.Event) (any, error) {
	for _, ch := range ev.Bot.Config().GetArray("channels", []string{}) {
		if ch = strings.TrimSpace(ch); ch == "" {
			continue
		}
		log.Info().Msgf("Joining %s on %s", ch, ev.Conn.Name())
		if err := ev.Conn.Send("JOIN " + ch); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// ignoreSieve drops anything from a nick or mask in the ignore list. Admins
// can't be ignored, so they can always undo it.
func ignoreSieve(ctx context.Context, ev *event.Event) (any, error) {
	c := ev.Bot.Config()
	if ev.Nick == "" || isAdmin(c.GetArray("admins", nil), ev) {
		return ev, nil
	}
	if matchesAny(c.GetArray("ignore", nil), ev) {
		log.Debug().Msgf("Ignoring %s for %s", ev.Nick, ev.Hook.Description())
		return nil, nil
	}
	return ev, nil
}

// checkAdmin grants admins every permission.
func checkAdmin(ctx context.Context, ev *event.Event) (any, error) {
	return isAdmin(ev.Bot.Config().GetArray("admins", nil), ev), nil
}

func isAdmin(admins []string, ev *event.Event) bool {
	return matchesAny(admins, ev)
}

// matchesAny reports whether ev's nick or mask matches one of patterns.
// Patterns without a "!" are nicks; the rest are glob masks like
// "*!*@example.com".
func matchesAny(patterns []string, ev *event.Event) bool {
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.Contains(p, "!") {
			if p == strings.ToLower(ev.Nick) {
				return true
			}
			continue
		}
		if ok, err := path.Match(p, strings.ToLower(ev.Mask)); err == nil && ok {
			return true
		}
	}
	return false
}

func invite(ctx context.Context, ev *event.Event) (any, error) {
	if len(ev.IrcParamList) < 2 {
		return nil, nil
	}
	if ev.Bot.Config().Get("invite.join", "true") != "true" {
		return nil, nil
	}
	ch := ev.IrcParamList[len(ev.IrcParamList)-1]
	log.Info().Msgf("Invited to %s by %s", ch, ev.Nick)
	return nil, ev.Conn.Send("JOIN " + ch)
}

func join(ctx context.Context, ev *event.Event) (any, error) {
	ch := strings.Fields(ev.Text)[0]
	if !strings.HasPrefix(ch, "#") {
		ch = "#" + ch
	}
	return nil, ev.Conn.Send("JOIN " + ch)
}

func part(ctx context.Context, ev *event.Event) (any, error) {
	ch := ev.Chan
	if fields := strings.Fields(ev.Text); len(fields) > 0 {
		ch = fields[0]
	}
	if !strings.HasPrefix(ch, "#") {
		return "I can only leave channels.", nil
	}
	return nil, ev.Conn.Send("PART " + ch)
}

func setIgnored(ev *event.Event, ignore bool) (any, error) {
	c := ev.Bot.Config()
	target := strings.ToLower(strings.Fields(ev.Text)[0])
	list := c.GetArray("ignore", []string{})

	kept := []string{}
	found := false
	for _, n := range list {
		if strings.EqualFold(n, target) {
			found = true
			continue
		}
		kept = append(kept, n)
	}

	switch {
	case ignore && found:
		return fmt.Sprintf("%s is already ignored.", target), nil
	case ignore:
		kept = append(kept, target)
	case !found:
		return fmt.Sprintf("%s is not ignored.", target), nil
	}
	if len(kept) == 0 {
		if err := c.Unset("ignore"); err != nil {
			return nil, err
		}
	} else if err := c.SetArray("ignore", kept); err != nil {
		return nil, err
	}
	if ignore {
		return fmt.Sprintf("%s has been ignored.", target), nil
	}
	return fmt.Sprintf("%s has been unignored.", target), nil
}

func reload(ctx context.Context, ev *event.Event) (any, error) {
	r, ok := ev.Bot.(reloader)
	if !ok {
		return "This bot can't reload plugins.", nil
	}
	title := strings.Fields(ev.Text)[0]
	if err := r.ReloadTitle(ctx, title); err != nil {
		log.Error().Err(err).Msgf("Could not reload %s", title)
		return fmt.Sprintf("Could not reload %s: %s", title, err), nil
	}
	return fmt.Sprintf("Reloaded %s.", title), nil
}
