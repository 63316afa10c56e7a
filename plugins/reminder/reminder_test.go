// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/event"
)

var start = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

type harness struct {
	m *bot.Manager
	c *bot.MockConn
	p *reminderPlugin
}

func setup(t *testing.T) *harness {
	ctx := context.Background()
	now = func() time.Time { return start }
	t.Cleanup(func() { now = time.Now })

	m := bot.NewMockManager()
	p := newPlugin()
	require.NoError(t, m.Load(ctx, p.unit()))
	t.Cleanup(func() { m.Unload(ctx, "reminder") })
	return &harness{m: m, c: bot.NewMockConn(), p: p}
}

func (h *harness) say(content string) {
	ev := event.New(event.Message, h.m, h.c)
	ev.Nick, ev.Chan, ev.Content = "tester", "#test", content
	h.m.Dispatch(context.Background(), ev)
}

func (h *harness) tick(t *testing.T, at time.Time) {
	now = func() time.Time { return at }
	_, err := h.p.deliver(context.Background(), event.New(event.Other, h.m, nil))
	require.NoError(t, err)
}

func (h *harness) messages() []string {
	messages, _, _ := h.c.Sent()
	return messages
}

func TestReminder(t *testing.T) {
	h := setup(t)
	h.say(".remind testuser in 5m don't fail this test")
	assert.Equal(t, []string{"(tester) Sure tester, I'll remind testuser."}, h.messages())

	h.tick(t, start.Add(4*time.Minute))
	assert.Len(t, h.messages(), 1)

	h.tick(t, start.Add(5*time.Minute))
	h.tick(t, start.Add(6*time.Minute))
	messages := h.messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Hey testuser, tester wanted you to be reminded: don't fail this test", messages[1])
}

func TestRemindMeInEnglish(t *testing.T) {
	h := setup(t)
	h.say(".remind me in 10 minutes to stretch")
	h.tick(t, start.Add(10*time.Minute))
	assert.Equal(t, []string{
		"(tester) Sure tester, I'll remind you.",
		"Hey tester, you wanted to be reminded: stretch",
	}, h.messages())
}

func TestRemindersComeOutInOrder(t *testing.T) {
	h := setup(t)
	h.say(".remind a in 3m third")
	h.say(".remind b in 1m first")
	h.say(".remind c in 2m second")
	h.tick(t, start.Add(time.Hour))

	messages := h.messages()
	require.Len(t, messages, 6)
	assert.Contains(t, messages[3], "first")
	assert.Contains(t, messages[4], "second")
	assert.Contains(t, messages[5], "third")
}

func TestBadTime(t *testing.T) {
	h := setup(t)
	h.say(".remind testuser whenever sometime")
	h.say(".remind testuser in -5m oops")
	assert.Equal(t, []string{
		"(tester) Easy cowboy, not sure I can parse that time.",
		"(tester) That time is in the past.",
	}, h.messages())
}

func TestUnknownConnectionWaits(t *testing.T) {
	h := setup(t)
	h.say(".remind testuser in 1m hello")

	h.p.mu.Lock()
	h.p.conns = map[string]event.Conn{}
	h.p.mu.Unlock()
	h.tick(t, start.Add(time.Hour))
	assert.Len(t, h.messages(), 1)

	h.m.Connected(context.Background(), h.c)
	h.tick(t, start.Add(time.Hour))
	assert.Len(t, h.messages(), 2)
}
