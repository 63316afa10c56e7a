// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

// startPeriodic starts a ticker goroutine for each periodic hook of p. The
// tickers stop when p is unloaded.
func (m *Manager) startPeriodic(p *plugin.Plugin) {
	hooks := p.Hooks[hook.KindPeriodic]
	if len(hooks) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.tickers[p.Title()] = cancel
	m.mu.Unlock()

	for _, h := range hooks {
		go m.tick(ctx, h.(*hook.PeriodicHook))
	}
}

func (m *Manager) tick(ctx context.Context, h *hook.PeriodicHook) {
	log.Debug().Msgf("Starting %s", h)
	timer := time.NewTimer(h.FirstAfter())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		ev := event.New(event.Other, m, nil)
		m.launch(ctx, h, ev)
		timer.Reset(h.Every())
	}
}
