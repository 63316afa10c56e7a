// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
)

type task struct {
	h  hook.Resolved
	ev *event.Event
}

// Dispatch runs every hook that matches ev: raw hooks, then event hooks,
// then a command if the message is one, then regex hooks. Within a kind
// hooks run in priority order.
func (m *Manager) Dispatch(ctx context.Context, ev *event.Event) {
	log.Debug().
		Str("event", ev.ID.String()).
		Str("type", ev.Type.String()).
		Str("chan", ev.Chan).
		Str("nick", ev.Nick).
		Msg(ev.Content)
	m.history.Append(ev)
	m.stats.Received()

	if ev.IrcCommand != "" {
		if m.runTasks(ctx, m.rawTasks(ev)) {
			return
		}
	}
	if m.runTasks(ctx, m.eventTasks(ev)) {
		return
	}
	if ev.Type != event.Message && ev.Type != event.Action {
		return
	}

	commanded := false
	if ev.Type == event.Message {
		t, ok := m.commandTask(ev)
		commanded = ok
		if t != nil && m.runTasks(ctx, []task{*t}) {
			return
		}
	}
	m.runRegexes(ctx, ev, commanded)
}

func (m *Manager) rawTasks(ev *event.Event) []task {
	tasks := []task{}
	for _, h := range m.hooksOf(hook.KindRaw) {
		raw := h.(*hook.RawHook)
		if raw.IsCatchAll() || containsFold(raw.Triggers, ev.IrcCommand) {
			tasks = append(tasks, task{h, ev})
		}
	}
	return tasks
}

func (m *Manager) eventTasks(ev *event.Event) []task {
	tasks := []task{}
	for _, h := range m.hooksOf(hook.KindEvent) {
		if h.(*hook.EventHook).Handles(ev.Type) {
			tasks = append(tasks, task{h, ev})
		}
	}
	return tasks
}

// commandTask finds the command ev invokes, if any. The bool is true when
// the message was addressed as a command, even if the command was unknown.
func (m *Manager) commandTask(ev *event.Event) (*task, bool) {
	name, text, ok := m.parseCommand(ev)
	if !ok {
		return nil, false
	}
	name = strings.ToLower(name)

	commands := m.Commands()
	cmd, found := commands[name]
	if !found {
		matches := []string{}
		for alias := range commands {
			if strings.HasPrefix(alias, name) {
				matches = append(matches, alias)
			}
		}
		sort.Strings(matches)
		switch {
		case len(matches) == 1:
			cmd = commands[matches[0]]
			name = matches[0]
		case len(matches) > 1 && ev.Conn != nil:
			if err := ev.Notice("Possible matches: " + joinOr(matches)); err != nil {
				log.Error().Err(err).Msg("Could not send command matches")
			}
			return nil, true
		default:
			return nil, true
		}
	}

	cev := ev.Copy()
	cev.TriggeredCommand = name
	cev.Text = text
	cev.Doc = cmd.Doc
	return &task{cmd, cev}, true
}

// parseCommand splits a message into a command name and its text. It
// accepts the configured command prefixes, "nick: cmd" and, in a private
// query, a bare command.
func (m *Manager) parseCommand(ev *event.Event) (string, string, bool) {
	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return "", "", false
	}

	body, ok := "", false
	for _, prefix := range m.config.GetArray("commandchar", []string{"."}) {
		if prefix != "" && strings.HasPrefix(content, prefix) {
			body, ok = strings.TrimPrefix(content, prefix), true
			break
		}
	}
	if !ok && ev.Conn != nil {
		nick := ev.Conn.Nick()
		lower := strings.ToLower(content)
		for _, sep := range []string{":", ","} {
			addr := strings.ToLower(nick) + sep
			if nick != "" && strings.HasPrefix(lower, addr) {
				body, ok = strings.TrimSpace(content[len(addr):]), true
				break
			}
		}
	}
	if !ok && ev.Chan != "" && strings.EqualFold(ev.Chan, ev.Nick) {
		body, ok = content, true
	}
	if !ok {
		return "", "", false
	}

	name, text, _ := strings.Cut(body, " ")
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(text), true
}

func (m *Manager) runRegexes(ctx context.Context, ev *event.Event, commanded bool) {
	matched, noMatch := []task{}, []task{}
	for _, h := range m.hooksOf(hook.KindRegex) {
		rh := h.(*hook.RegexHook)
		if commanded && !rh.RunOnCmd {
			continue
		}
		for _, re := range rh.Regexes {
			match := re.FindStringSubmatch(ev.Content)
			if match == nil {
				continue
			}
			rev := ev.Copy()
			rev.Match = match
			if rh.OnlyNoMatch {
				noMatch = append(noMatch, task{h, rev})
			} else {
				matched = append(matched, task{h, rev})
			}
			break
		}
	}

	ran := 0
	halted := false
	for _, t := range sortTasks(matched) {
		ok, _, _ := m.launch(ctx, t.h, t.ev)
		if !ok {
			continue
		}
		ran++
		if a := t.h.Base().Action; a == hook.HaltType || a == hook.HaltAll {
			halted = true
			break
		}
	}
	if ran > 0 || halted {
		return
	}
	m.runTasks(ctx, noMatch)
}

// runTasks launches tasks in priority order and reports whether one of them
// asked to halt every remaining hook.
func (m *Manager) runTasks(ctx context.Context, tasks []task) bool {
	for _, t := range sortTasks(tasks) {
		ran, _, _ := m.launch(ctx, t.h, t.ev)
		if !ran {
			continue
		}
		switch t.h.Base().Action {
		case hook.HaltType:
			return false
		case hook.HaltAll:
			return true
		}
	}
	return false
}

func sortTasks(tasks []task) []task {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].h.Base().Priority < tasks[j].h.Base().Priority
	})
	return tasks
}

// launch runs one hook against ev. It reports false when the hook was
// skipped: wrong client, missing parameters, blocked by a sieve or denied by
// permissions.
func (m *Manager) launch(ctx context.Context, h hook.Resolved, ev *event.Event) (bool, any, error) {
	base := h.Base()
	ev = ev.Copy()
	ev.Hook = h

	if ev.Conn != nil && !base.AllowsClient(ev.Conn.Type()) {
		return false, nil, nil
	}
	for _, p := range base.RequiredParams {
		if !ev.Provides(p) {
			log.Debug().Msgf("Not running %s: parameter %s is not available", h.Description(), p)
			return false, nil, nil
		}
	}

	if sieved(base.Kind) {
		ev = m.sieve(ctx, h, ev)
		if ev == nil {
			return false, nil, nil
		}
	}

	if base.Kind == hook.KindCommand {
		cmd := h.(*hook.CommandHook)
		if cmd.AutoHelp && ev.Text == "" && cmd.Doc != "" {
			if err := ev.NoticeDoc(); err != nil {
				log.Error().Err(err).Msg("Could not send command doc")
			}
			return false, nil, nil
		}
	}

	if len(base.Permissions) > 0 && !m.permitted(ctx, ev, base.Permissions) {
		if ev.Conn != nil && ev.Nick != "" {
			if err := ev.Notice("Sorry, you are not allowed to use this command."); err != nil {
				log.Error().Err(err).Msg("Could not send permission notice")
			}
		}
		return false, nil, nil
	}

	res, err := m.execute(ctx, h, ev)
	m.stats.Ran(err)
	if err != nil {
		log.Error().Err(err).Str("event", ev.ID.String()).Msgf("Error in hook %s", h.Description())
	} else {
		m.reply(h, ev, res)
	}

	if base.Kind != hook.KindPostHook {
		m.postHooks(ctx, h, ev, res, err)
	}
	return true, res, err
}

// sieved reports whether sieves see hooks of kind before they run.
func sieved(kind hook.Kind) bool {
	switch kind {
	case hook.KindCommand, hook.KindRegex, hook.KindEvent, hook.KindRaw:
		return true
	}
	return false
}

// sieve passes ev through every sieve in priority order. It returns nil if
// a sieve blocked the event.
func (m *Manager) sieve(ctx context.Context, h hook.Resolved, ev *event.Event) *event.Event {
	for _, s := range m.hooksOf(hook.KindSieve) {
		sev := ev.Copy()
		sev.Hook = h
		res, err := m.execute(ctx, s, sev)
		if err != nil {
			log.Error().Err(err).Msgf("Error running sieve %s on %s", s.Description(), h.Description())
			return nil
		}
		next, ok := res.(*event.Event)
		if !ok || next == nil {
			log.Debug().Msgf("Sieve %s blocked %s", s.Description(), h.Description())
			return nil
		}
		ev = next
		ev.Hook = h
	}
	return ev
}

// permitted asks the perm_check hooks whether ev's sender holds any of perms.
func (m *Manager) permitted(ctx context.Context, ev *event.Event, perms []string) bool {
	for _, h := range m.hooksOf(hook.KindPermission) {
		ph := h.(*hook.PermHook)
		for _, perm := range perms {
			if len(ph.Perms) > 0 && !containsFold(ph.Perms, perm) {
				continue
			}
			pev := ev.Copy()
			pev.Hook = ph
			pev.Perm = perm
			res, err := m.execute(ctx, ph, pev)
			if err != nil {
				log.Error().Err(err).Msgf("Error in permission hook %s", ph.Description())
				continue
			}
			if ok, _ := res.(bool); ok {
				return true
			}
		}
	}
	return false
}

func (m *Manager) postHooks(ctx context.Context, launched hook.Resolved, ev *event.Event, res any, err error) {
	for _, h := range m.hooksOf(hook.KindPostHook) {
		pev := ev.Copy()
		pev.LaunchedHook = launched
		pev.LaunchedEvent = ev
		pev.Result = res
		pev.Err = err
		m.launch(ctx, h, pev)
	}
}

// execute calls the hook's function on the dispatch goroutine or on the
// worker pool, holding the hook's lock if it is single threaded.
func (m *Manager) execute(ctx context.Context, h hook.Resolved, ev *event.Event) (any, error) {
	base := h.Base()
	if base.SingleThread {
		l := m.lockFor(base)
		l.Lock()
		defer l.Unlock()
	}

	if base.Threading == hook.RunOnLoop {
		return call(ctx, base.Func, ev)
	}

	var res any
	err := m.pool.Run(ctx, func() error {
		var err error
		res, err = base.Func.Fn(ctx, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func call(ctx context.Context, f *hook.Func, ev *event.Event) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msgf("%s panicked", f.Name)
			err = fmt.Errorf("panic in %s: %v", f.Name, r)
		}
	}()
	return f.Fn(ctx, ev)
}

func (m *Manager) lockFor(h *hook.Hook) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.locks[h]
	if !ok {
		l = &sync.Mutex{}
		m.locks[h] = l
	}
	return l
}

// reply sends a hook's return value back to the channel the event came from.
func (m *Manager) reply(h hook.Resolved, ev *event.Event, res any) {
	switch h.Base().Kind {
	case hook.KindCommand, hook.KindRegex, hook.KindEvent:
	default:
		return
	}
	if ev.Conn == nil || ev.Chan == "" {
		return
	}

	var lines []string
	switch r := res.(type) {
	case string:
		lines = []string{r}
	case []string:
		lines = r
	case fmt.Stringer:
		lines = []string{r.String()}
	}
	for _, l := range lines {
		if l == "" {
			continue
		}
		if err := ev.Reply(l); err != nil {
			log.Error().Err(err).Msgf("Could not reply for %s", h.Description())
		}
	}
}

// Outgoing runs the irc_out hooks over a line about to be sent. A hook
// returning a string replaces the line; one returning nil drops it.
func (m *Manager) Outgoing(ctx context.Context, conn event.Conn, line string) (string, bool) {
	for _, h := range m.hooksOf(hook.KindIrcOut) {
		ev := event.New(event.Other, m, conn)
		ev.IrcRaw = line
		ran, res, err := m.launch(ctx, h, ev)
		if !ran || err != nil {
			continue
		}
		switch r := res.(type) {
		case nil:
			log.Debug().Msgf("%s dropped outgoing line", h.Description())
			return "", false
		case string:
			line = r
		default:
			log.Warn().Msgf("%s returned %T from irc_out, ignoring", h.Description(), res)
		}
	}
	m.stats.Sent()
	return line, true
}

// Connected runs the on_connect hooks for conn.
func (m *Manager) Connected(ctx context.Context, conn event.Conn) {
	for _, h := range m.hooksOf(hook.KindOnConnect) {
		ev := event.New(event.Other, m, conn)
		m.launch(ctx, h, ev)
	}
}

// CapAvailable asks the on_cap_available hooks whether to request a
// capability the server offers.
func (m *Manager) CapAvailable(ctx context.Context, conn event.Conn, capability string) bool {
	want := false
	for _, h := range m.hooksOf(hook.KindCapAvailable) {
		if !h.(*hook.CapHook).Wants(capability) {
			continue
		}
		ev := event.New(event.Other, m, conn)
		ev.Cap = capability
		ran, res, err := m.launch(ctx, h, ev)
		if ran && err == nil {
			if ok, _ := res.(bool); ok {
				want = true
			}
		}
	}
	return want
}

// CapAck runs the on_cap_ack hooks for a capability the server granted.
func (m *Manager) CapAck(ctx context.Context, conn event.Conn, capability string) {
	for _, h := range m.hooksOf(hook.KindCapAck) {
		if !h.(*hook.CapHook).Wants(capability) {
			continue
		}
		ev := event.New(event.Other, m, conn)
		ev.Cap = capability
		m.launch(ctx, h, ev)
	}
}

func containsFold(list []string, s string) bool {
	for _, l := range list {
		if strings.EqualFold(l, s) {
			return true
		}
	}
	return false
}

func joinOr(words []string) string {
	if len(words) < 2 {
		return strings.Join(words, "")
	}
	return strings.Join(words[:len(words)-1], ", ") + " or " + words[len(words)-1]
}
