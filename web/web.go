// Package web serves a small JSON API for inspecting and steering the
// plugin host.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ggicci/httpin"
	httpin_integration "github.com/ggicci/httpin/integration"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/bot/history"
	"github.com/velour/hookbase/bot/stats"
	"github.com/velour/hookbase/config"
	"github.com/velour/hookbase/plugin"
)

func init() {
	httpin_integration.UseGochiURLParam("path", chi.URLParam)
}

// Host is the part of the plugin manager the web API exposes.
type Host interface {
	Plugins() []*plugin.Plugin
	Hooks() []bot.HookInfo
	History() *history.History
	Stats() *stats.Stats
	ReloadTitle(ctx context.Context, title string) error
}

type Web struct {
	config        *config.Config
	host          Host
	router        *chi.Mux
	httpEndPoints []EndPoint
}

type EndPoint struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type PluginInfo struct {
	Title  string         `json:"title"`
	File   string         `json:"file"`
	Hooks  []bot.HookInfo `json:"hooks"`
	Tables []string       `json:"tables"`
}

type HistoryEntry struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Chan    string `json:"chan,omitempty"`
	Nick    string `json:"nick,omitempty"`
	Content string `json:"content,omitempty"`
	Command string `json:"irc_command,omitempty"`
}

type HistoryReq struct {
	Chan  string `in:"query=chan"`
	Limit int    `in:"query=limit;default=20"`
}

type ReloadReq struct {
	Name   string `in:"path=name"`
	Secret string `in:"header=X-Hookbase-Secret"`
}

func New(c *config.Config, h Host) *Web {
	w := &Web{
		config: c,
		host:   h,
		router: chi.NewRouter(),
	}
	w.setupHTTP()
	return w
}

func (ws *Web) setupHTTP() {
	if ws.config.GetInt("bot.useLogger", 0) == 1 {
		ws.router.Use(middleware.Logger)
	}

	reqCount := ws.config.GetInt("bot.httprate.requests", 500)
	reqTime := time.Duration(ws.config.GetInt("bot.httprate.seconds", 5))
	if reqCount > 0 && reqTime > 0 {
		ws.router.Use(httprate.LimitByIP(reqCount, reqTime*time.Second))
	}

	ws.router.Use(middleware.RequestID)
	ws.router.Use(middleware.Recoverer)
	ws.router.Use(middleware.StripSlashes)

	ws.router.Get("/", ws.serveNav)
	ws.router.Get("/plugins", ws.servePlugins)
	ws.router.Get("/hooks", ws.serveHooks)
	ws.router.Get("/stats", ws.serveStats)
	ws.router.With(httpin.NewInput(HistoryReq{})).
		Get("/history", ws.serveHistory)
	ws.router.With(httpin.NewInput(ReloadReq{})).
		Post("/plugins/{name}/reload", ws.handleReload)

	ws.httpEndPoints = append(ws.httpEndPoints,
		EndPoint{"Plugins", "/plugins"},
		EndPoint{"Hooks", "/hooks"},
		EndPoint{"History", "/history"},
		EndPoint{"Stats", "/stats"},
	)
}

func (ws *Web) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws.router.ServeHTTP(w, r)
}

// GetWebNavigation lists the API endpoints plus any extra links from the
// "bot.links" config, given as name:url pairs.
func (ws *Web) GetWebNavigation() []EndPoint {
	endpoints := append([]EndPoint{}, ws.httpEndPoints...)
	moreEndpoints := ws.config.GetArray("bot.links", []string{})
	for _, e := range moreEndpoints {
		link := strings.SplitN(e, ":", 2)
		if len(link) != 2 {
			continue
		}
		endpoints = append(endpoints, EndPoint{link[0], link[1]})
	}
	return endpoints
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Could not write response")
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (ws *Web) serveNav(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.GetWebNavigation())
}

func (ws *Web) servePlugins(w http.ResponseWriter, r *http.Request) {
	byPlugin := map[string][]bot.HookInfo{}
	for _, h := range ws.host.Hooks() {
		byPlugin[h.Plugin] = append(byPlugin[h.Plugin], h)
	}

	out := []PluginInfo{}
	for _, p := range ws.host.Plugins() {
		info := PluginInfo{
			Title:  p.Title(),
			File:   p.FilePath(),
			Hooks:  byPlugin[p.Title()],
			Tables: []string{},
		}
		if info.Hooks == nil {
			info.Hooks = []bot.HookInfo{}
		}
		for _, t := range p.Tables {
			info.Tables = append(info.Tables, t.Name)
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (ws *Web) serveHooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.host.Hooks())
}

func (ws *Web) serveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ws.host.Stats().Snapshot())
}

func (ws *Web) serveHistory(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(httpin.Input).(*HistoryReq)

	events := ws.host.History().All()
	if input.Chan != "" {
		events = ws.host.History().InChannel(input.Chan)
	}
	if input.Limit > 0 && len(events) > input.Limit {
		events = events[:input.Limit]
	}

	out := make([]HistoryEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, HistoryEntry{
			ID:      ev.ID.String(),
			Type:    ev.Type.String(),
			Chan:    ev.Chan,
			Nick:    ev.Nick,
			Content: ev.Content,
			Command: ev.IrcCommand,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (ws *Web) handleReload(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(httpin.Input).(*ReloadReq)

	secret := ws.config.Get("web.secret", "")
	if secret == "" || subtle.ConstantTimeCompare([]byte(input.Secret), []byte(secret)) != 1 {
		writeErr(w, http.StatusForbidden, errors.New("bad secret"))
		return
	}

	err := ws.host.ReloadTitle(r.Context(), input.Name)
	switch {
	case errors.Is(err, bot.ErrNoPluginSource), errors.Is(err, bot.ErrUnknownPlugin):
		writeErr(w, http.StatusNotFound, err)
		return
	case err != nil:
		log.Error().Err(err).Msgf("Could not reload %s", input.Name)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reloaded": input.Name})
}

// ListenAndServe serves the API on addr until ctx is done.
func (ws *Web) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: ws.router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Debug().Msgf("starting web service at %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
