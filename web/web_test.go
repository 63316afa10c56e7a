package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/bot/stats"
	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/plugins/beats"
	"github.com/velour/hookbase/plugins/notes"
)

func setup(t *testing.T) (*Web, *bot.Manager) {
	ctx := context.Background()
	m := bot.NewMockManager()
	require.NoError(t, m.LoadSource(ctx, beats.New))
	require.NoError(t, m.LoadSource(ctx, notes.New))
	t.Cleanup(func() { m.Shutdown(ctx) })
	require.NoError(t, m.Config().Set("bot.httprate.requests", "0"))
	return New(m.Config(), m), m
}

func do(t *testing.T, ws *Web, req *http.Request, into any) int {
	rec := httptest.NewRecorder()
	ws.ServeHTTP(rec, req)
	if into != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
	}
	return rec.Code
}

func TestPlugins(t *testing.T) {
	ws, _ := setup(t)
	out := []PluginInfo{}
	code := do(t, ws, httptest.NewRequest(http.MethodGet, "/plugins", nil), &out)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, out, 2)

	assert.Equal(t, "beats", out[0].Title)
	assert.Empty(t, out[0].Tables)
	require.Len(t, out[0].Hooks, 1)
	assert.Equal(t, "command", string(out[0].Hooks[0].Kind))

	assert.Equal(t, "notes", out[1].Title)
	assert.Equal(t, []string{"notes"}, out[1].Tables)
	assert.Equal(t, []string{"note", "notes", "todo"}, out[1].Hooks[0].Aliases)
}

func TestHooks(t *testing.T) {
	ws, m := setup(t)
	out := []bot.HookInfo{}
	do(t, ws, httptest.NewRequest(http.MethodGet, "/hooks", nil), &out)
	assert.Len(t, out, len(m.Hooks()))
}

func TestNav(t *testing.T) {
	ws, m := setup(t)
	require.NoError(t, m.Config().SetArray("bot.links", []string{"Home:https://example.com", "broken"}))
	out := []EndPoint{}
	do(t, ws, httptest.NewRequest(http.MethodGet, "/", nil), &out)
	require.Len(t, out, 5)
	assert.Equal(t, EndPoint{"Home", "https://example.com"}, out[4])
}

func TestHistory(t *testing.T) {
	ws, m := setup(t)
	conn := bot.NewMockConn()
	for _, c := range []struct{ ch, text string }{{"#a", "one"}, {"#b", "two"}, {"#a", "three"}} {
		ev := event.New(event.Message, m, conn)
		ev.Nick, ev.Chan, ev.Content = "tester", c.ch, c.text
		m.Dispatch(context.Background(), ev)
	}

	out := []HistoryEntry{}
	do(t, ws, httptest.NewRequest(http.MethodGet, "/history?chan=%23a", nil), &out)
	require.Len(t, out, 2)
	assert.Equal(t, "three", out[0].Content)
	assert.Equal(t, "one", out[1].Content)

	out = []HistoryEntry{}
	do(t, ws, httptest.NewRequest(http.MethodGet, "/history?limit=1", nil), &out)
	require.Len(t, out, 1)
	assert.Equal(t, "three", out[0].Content)
	assert.Equal(t, "message", out[0].Type)

	snap := stats.Snapshot{}
	do(t, ws, httptest.NewRequest(http.MethodGet, "/stats", nil), &snap)
	assert.Equal(t, int64(3), snap.MessagesRcv)
}

func TestReload(t *testing.T) {
	ws, m := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/plugins/beats/reload", nil)
	assert.Equal(t, http.StatusForbidden, do(t, ws, req, nil))

	require.NoError(t, m.Config().Set("web.secret", "hunter2"))
	for _, wrong := range []string{"", "hunter", "hunter22", "HUNTER2"} {
		req = httptest.NewRequest(http.MethodPost, "/plugins/beats/reload", nil)
		req.Header.Set("X-Hookbase-Secret", wrong)
		assert.Equal(t, http.StatusForbidden, do(t, ws, req, nil), wrong)
	}

	req = httptest.NewRequest(http.MethodPost, "/plugins/beats/reload", nil)
	req.Header.Set("X-Hookbase-Secret", "hunter2")
	out := map[string]string{}
	assert.Equal(t, http.StatusOK, do(t, ws, req, &out))
	assert.Equal(t, "beats", out["reloaded"])
	assert.True(t, m.Loaded("beats"))

	req = httptest.NewRequest(http.MethodPost, "/plugins/nope/reload", nil)
	req.Header.Set("X-Hookbase-Secret", "hunter2")
	assert.Equal(t, http.StatusNotFound, do(t, ws, req, nil))
}
