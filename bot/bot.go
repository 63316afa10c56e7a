// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/bot/history"
	"github.com/velour/hookbase/bot/stats"
	"github.com/velour/hookbase/config"
	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
	"github.com/velour/hookbase/pool"
	"github.com/velour/hookbase/schema"
)

var (
	ErrPluginLoaded   = errors.New("plugin already loaded")
	ErrUnknownPlugin  = errors.New("no such plugin")
	ErrNoPluginSource = errors.New("plugin has no source to reload from")
)

// Manager owns the loaded plugins and dispatches events to their hooks.
type Manager struct {
	config  *config.Config
	db      *sqlx.DB
	pool    *pool.Pool
	meta    *schema.Metadata
	history *history.History
	stats   *stats.Stats

	mu       sync.RWMutex
	plugins  map[string]*plugin.Plugin
	sources  map[string]Source
	hooks    map[hook.Kind][]hook.Resolved
	commands map[string]*hook.CommandHook
	tickers  map[string]context.CancelFunc

	lockMu sync.Mutex
	locks  map[*hook.Hook]*sync.Mutex

	queue chan *event.Event
}

// New creates a Manager using the database behind c. Hooks that may block
// run on a pool sized by the "workers" config value.
func New(c *config.Config) *Manager {
	workers := c.GetInt("workers", 8)
	return &Manager{
		config:   c,
		db:       c.DB,
		pool:     pool.New(workers),
		meta:     schema.Base,
		history:  history.New(c.GetInt("history.size", 100)),
		stats:    stats.New(),
		plugins:  make(map[string]*plugin.Plugin),
		sources:  make(map[string]Source),
		hooks:    make(map[hook.Kind][]hook.Resolved),
		commands: make(map[string]*hook.CommandHook),
		tickers:  make(map[string]context.CancelFunc),
		locks:    make(map[*hook.Hook]*sync.Mutex),
		queue:    make(chan *event.Event, c.GetInt("queue.size", 256)),
	}
}

func (m *Manager) Config() *config.Config     { return m.config }
func (m *Manager) DB() *sqlx.DB               { return m.db }
func (m *Manager) History() *history.History  { return m.history }
func (m *Manager) Pool() *pool.Pool           { return m.pool }
func (m *Manager) Stats() *stats.Stats        { return m.stats }
func (m *Manager) Metadata() *schema.Metadata { return m.meta }

// LoadSource builds a unit from src, loads it and remembers src so the
// plugin can be reloaded by title.
func (m *Manager) LoadSource(ctx context.Context, src Source) error {
	unit := src()
	if err := m.Load(ctx, unit); err != nil {
		return err
	}
	m.mu.Lock()
	m.sources[unit.Name] = src
	m.mu.Unlock()
	return nil
}

// Load resolves unit into a plugin, creates its tables, runs its on_start
// hooks and registers the rest of its hooks. A failure leaves nothing of the
// plugin registered.
func (m *Manager) Load(ctx context.Context, unit *plugin.Unit) error {
	title := unit.Name
	m.mu.RLock()
	_, loaded := m.plugins[title]
	m.mu.RUnlock()
	if loaded {
		return fmt.Errorf("%s: %w", title, ErrPluginLoaded)
	}

	p := plugin.New(unit.FilePath, filepath.Base(unit.FilePath), title, unit)
	if err := p.Load(); err != nil {
		m.dropTables(unit)
		return fmt.Errorf("loading %s: %w", title, err)
	}
	if err := p.CreateTables(ctx, m.pool, m.db); err != nil {
		p.UnregisterTables(m.meta)
		return fmt.Errorf("creating tables for %s: %w", title, err)
	}

	for _, h := range sortByPriority(p.Hooks[hook.KindOnStart]) {
		ev := event.New(event.Other, m, nil)
		if _, _, err := m.launch(ctx, h, ev); err != nil {
			p.UnregisterTables(m.meta)
			return fmt.Errorf("%s failed to start: %w", h.Description(), err)
		}
	}

	m.register(p)
	m.startPeriodic(p)
	log.Info().Msgf("Loaded %s", p.Title())
	return nil
}

// dropTables removes a unit's table definitions when it never got as far
// as becoming a plugin.
func (m *Manager) dropTables(unit *plugin.Unit) {
	for _, member := range unit.Members {
		if t, ok := member.(*schema.Table); ok {
			m.meta.Remove(t)
		}
	}
}

func (m *Manager) register(p *plugin.Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plugins[p.Title()] = p
	for _, kind := range hook.Kinds {
		for _, h := range p.Hooks[kind] {
			m.hooks[kind] = append(m.hooks[kind], h)
			cmd, ok := h.(*hook.CommandHook)
			if !ok {
				continue
			}
			for _, alias := range cmd.Aliases {
				alias = strings.ToLower(alias)
				if old, ok := m.commands[alias]; ok {
					log.Warn().Msgf("Plugin %s attempted to register command %s which was already registered by %s. Ignoring new assignment.",
						p.Title(), alias, old.Description())
					continue
				}
				m.commands[alias] = cmd
			}
		}
		m.hooks[kind] = sortByPriority(m.hooks[kind])
	}
}

// Unload stops a plugin's periodic hooks, runs its on_stop hooks and removes
// everything it registered. Stored table data is left alone.
func (m *Manager) Unload(ctx context.Context, title string) error {
	m.mu.Lock()
	p, ok := m.plugins[title]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", title, ErrUnknownPlugin)
	}
	if cancel, ok := m.tickers[title]; ok {
		cancel()
		delete(m.tickers, title)
	}
	delete(m.plugins, title)
	for kind, hooks := range m.hooks {
		kept := hooks[:0:0]
		for _, h := range hooks {
			if h.Base().Owner != hook.Owner(p) {
				kept = append(kept, h)
			}
		}
		m.hooks[kind] = kept
	}
	for alias, cmd := range m.commands {
		if cmd.Owner == hook.Owner(p) {
			delete(m.commands, alias)
		}
	}
	m.mu.Unlock()

	for _, h := range sortByPriority(p.Hooks[hook.KindOnStop]) {
		ev := event.New(event.Other, m, nil)
		if _, _, err := m.launch(ctx, h, ev); err != nil {
			log.Error().Err(err).Msgf("Error running on_stop hook %s", h.Description())
		}
	}

	m.lockMu.Lock()
	for _, h := range p.All() {
		delete(m.locks, h.Base())
	}
	m.lockMu.Unlock()

	p.UnregisterTables(m.meta)
	log.Info().Msgf("Unloaded %s", p.Title())
	return nil
}

// Reload unloads the unit's plugin if it is loaded and loads unit in its place.
func (m *Manager) Reload(ctx context.Context, unit *plugin.Unit) error {
	if m.Loaded(unit.Name) {
		if err := m.Unload(ctx, unit.Name); err != nil {
			return err
		}
	}
	return m.Load(ctx, unit)
}

// ReloadTitle reloads a plugin that was loaded with LoadSource.
func (m *Manager) ReloadTitle(ctx context.Context, title string) error {
	m.mu.RLock()
	src, ok := m.sources[title]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", title, ErrNoPluginSource)
	}
	return m.Reload(ctx, src())
}

// Loaded reports whether a plugin with the title is loaded.
func (m *Manager) Loaded(title string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.plugins[title]
	return ok
}

// Plugins returns the loaded plugins ordered by title.
func (m *Manager) Plugins() []*plugin.Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*plugin.Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title() < out[j].Title() })
	return out
}

// Hooks lists every registered hook.
func (m *Manager) Hooks() []HookInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []HookInfo{}
	for _, kind := range hook.Kinds {
		for _, h := range m.hooks[kind] {
			b := h.Base()
			info := HookInfo{
				Kind:        kind,
				Function:    b.FunctionName,
				Description: h.Description(),
				Priority:    int(b.Priority),
			}
			if b.Owner != nil {
				info.Plugin = b.Owner.Title()
			}
			if cmd, ok := h.(*hook.CommandHook); ok {
				info.Aliases = cmd.Aliases
			}
			out = append(out, info)
		}
	}
	return out
}

// Commands returns the registered command hooks by alias.
func (m *Manager) Commands() map[string]*hook.CommandHook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*hook.CommandHook, len(m.commands))
	for k, v := range m.commands {
		out[k] = v
	}
	return out
}

func (m *Manager) hooksOf(kind hook.Kind) []hook.Resolved {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]hook.Resolved(nil), m.hooks[kind]...)
}

// Submit queues an event for Run. It drops the event if the queue is full.
func (m *Manager) Submit(ev *event.Event) {
	select {
	case m.queue <- ev:
	default:
		log.Error().Str("event", ev.ID.String()).Msg("Event queue full, dropping event")
	}
}

// Run dispatches submitted events until ctx is done. Each event gets its own
// goroutine, so a hook waiting on the pool never holds up the next event.
// Run returns once the events in flight are done.
func (m *Manager) Run(ctx context.Context) error {
	var inflight sync.WaitGroup
	defer inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.queue:
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				m.Dispatch(ctx, ev)
			}()
		}
	}
}

// Shutdown unloads every plugin and stops the worker pool.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, p := range m.Plugins() {
		if err := m.Unload(ctx, p.Title()); err != nil {
			log.Error().Err(err).Msgf("Could not unload %s", p.Title())
		}
	}
	return m.pool.Close(ctx)
}

func sortByPriority(hooks []hook.Resolved) []hook.Resolved {
	out := append([]hook.Resolved(nil), hooks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Base().Priority < out[j].Base().Priority
	})
	return out
}
