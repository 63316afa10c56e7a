// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/schema"
)

var ErrAlreadyLoaded = errors.New("plugin already loaded")

// Runner runs blocking work off the dispatch loop.
type Runner interface {
	Run(ctx context.Context, fn func() error) error
}

// Plugin is a loaded plugin unit and the hooks and tables it contributes.
type Plugin struct {
	filePath string
	fileName string
	title    string
	unit     *Unit

	// Hooks are grouped by kind in the order the unit declared them.
	Hooks  map[hook.Kind][]hook.Resolved
	Tables []*schema.Table

	loaded bool
}

// New returns an unloaded plugin for unit.
func New(filePath, fileName, title string, unit *Unit) *Plugin {
	return &Plugin{
		filePath: filePath,
		fileName: fileName,
		title:    title,
		unit:     unit,
		Hooks:    make(map[hook.Kind][]hook.Resolved),
	}
}

func (p *Plugin) FilePath() string { return p.filePath }
func (p *Plugin) FileName() string { return p.fileName }
func (p *Plugin) Title() string    { return p.title }
func (p *Plugin) Unit() *Unit      { return p.unit }

// Load resolves every declaration in the unit into hooks and collects the
// unit's tables. Declarations are cleared as they are resolved. Load may only
// be called once.
func (p *Plugin) Load() error {
	if p.loaded {
		return ErrAlreadyLoaded
	}
	if err := p.unit.Err(); err != nil {
		return fmt.Errorf("%s: %w", p.title, err)
	}
	p.loaded = true

	for _, m := range p.unit.Members {
		switch m := m.(type) {
		case *hook.Func:
			if !p.unit.Registry.Has(m) {
				continue
			}
			if err := p.loadHooks(m); err != nil {
				return err
			}
		case *schema.Table:
			if m.Metadata == schema.Base {
				p.Tables = append(p.Tables, m)
			}
		}
	}
	return nil
}

func (p *Plugin) loadHooks(f *hook.Func) error {
	decls := p.unit.Registry.Declarations(f)
	// the registry map has no order; keep resolution deterministic
	for _, kind := range hook.Kinds {
		d, ok := decls[kind]
		if !ok {
			continue
		}
		h, err := hook.Resolve(p, d)
		if err != nil {
			return err
		}
		p.Hooks[kind] = append(p.Hooks[kind], h)
	}
	p.unit.Registry.Clear(f)
	return nil
}

// CreateTables creates any of the plugin's tables missing from db. Both the
// existence check and the creation run through runner.
func (p *Plugin) CreateTables(ctx context.Context, runner Runner, db *sqlx.DB) error {
	if len(p.Tables) == 0 {
		return nil
	}
	log.Info().Msgf("Registering tables for %s", p.title)

	for _, t := range p.Tables {
		var exists bool
		err := runner.Run(ctx, func() error {
			var err error
			exists, err = t.Exists(ctx, db)
			return err
		})
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := runner.Run(ctx, func() error { return t.Create(ctx, db) }); err != nil {
			return err
		}
	}
	return nil
}

// UnregisterTables drops the plugin's table definitions from meta. Stored
// data stays where it is.
func (p *Plugin) UnregisterTables(meta *schema.Metadata) {
	if len(p.Tables) == 0 {
		return
	}
	log.Info().Msgf("Unregistering tables for %s", p.title)
	for _, t := range p.Tables {
		meta.Remove(t)
	}
}

// All returns every hook of the plugin.
func (p *Plugin) All() []hook.Resolved {
	out := []hook.Resolved{}
	for _, kind := range hook.Kinds {
		out = append(out, p.Hooks[kind]...)
	}
	return out
}
