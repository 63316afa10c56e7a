package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/event"
)

func feed(n int) string {
	items := ""
	for i := 1; i <= n; i++ {
		items += fmt.Sprintf("<item><title>story %d</title></item>", i)
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>The News</title>` + items + `</channel></rss>`
}

func serve(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	hits := &atomic.Int32{}
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(s.Close)
	return s, hits
}

func setup(t *testing.T) (*bot.Manager, *bot.MockConn) {
	m := bot.NewMockManager()
	require.NoError(t, m.Load(context.Background(), New()))
	return m, bot.NewMockConn()
}

func say(m *bot.Manager, c *bot.MockConn, payload string) []string {
	ev := event.New(event.Message, m, c)
	ev.Nick, ev.Chan, ev.Content = "tester", "#test", payload
	m.Dispatch(context.Background(), ev)
	messages, _, _ := c.Sent()
	return messages
}

func TestRSS(t *testing.T) {
	s, _ := serve(t, feed(2))
	m, c := setup(t)
	messages := say(m, c, ".rss "+s.URL)
	assert.Equal(t, []string{"(tester) The News", "(tester) story 1", "(tester) story 2"}, messages)
}

func TestRSSCache(t *testing.T) {
	s, hits := serve(t, feed(8))
	m, c := setup(t)
	say(m, c, ".rss "+s.URL)
	messages := say(m, c, ".rss "+s.URL)
	assert.Equal(t, int32(1), hits.Load())
	require.Len(t, messages, 10)
	assert.Equal(t, "(tester) The News", messages[0])
	assert.Equal(t, "(tester) story 5", messages[5])
	assert.Equal(t, "(tester) The News", messages[9])
}

func TestRSSError(t *testing.T) {
	s, _ := serve(t, "this is not a feed")
	m, c := setup(t)
	messages := say(m, c, ".rss "+s.URL)
	require.Len(t, messages, 1)
	assert.True(t, strings.HasPrefix(messages[0], "(tester) RSS error: "))
}

func TestPaging(t *testing.T) {
	item := &cacheItem{data: []string{"a", "b", "c", "d", "e", "f", "g"}}
	assert.Equal(t, []string{"a", "b", "c"}, item.getCurrentPage(3))
	assert.Equal(t, []string{"d", "e", "f"}, item.getCurrentPage(3))
	assert.Equal(t, []string{"g", "a", "b"}, item.getCurrentPage(3))
}
