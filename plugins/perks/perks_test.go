package perks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/plugins/core"
)

type harness struct {
	m *bot.Manager
	c *bot.MockConn
}

func setup(t *testing.T) *harness {
	ctx := context.Background()
	m := bot.NewMockManager()
	require.NoError(t, m.Load(ctx, core.New()))
	require.NoError(t, m.Load(ctx, New()))
	t.Cleanup(func() { m.Unload(ctx, "perks") })
	require.NoError(t, m.Config().SetArray("admins", []string{"boss"}))
	return &harness{m: m, c: bot.NewMockConn()}
}

func (h *harness) say(nick, content string) {
	ev := event.New(event.Message, h.m, h.c)
	ev.Nick, ev.Chan, ev.Content = nick, "#test", content
	h.m.Dispatch(context.Background(), ev)
}

func (h *harness) messages() []string {
	messages, _, _ := h.c.Sent()
	return messages
}

func TestManagingPerksNeedsPermission(t *testing.T) {
	h := setup(t)
	h.say("tester", ".addperk tester hideidle")
	_, notices, _ := h.c.Sent()
	assert.Equal(t, []string{"Sorry, you are not allowed to use this command."}, notices)
	assert.Empty(t, h.messages())
}

func TestAddListDelete(t *testing.T) {
	h := setup(t)
	h.say("boss", ".addperk Tester hideidle")
	h.say("boss", ".addperk tester hideidle showidle")
	h.say("boss", ".listperks tester")
	h.say("boss", ".delperk tester hideidle nope")
	h.say("boss", ".clearperks tester")
	h.say("boss", ".listperks tester")

	assert.Equal(t, []string{
		`(boss) Added "hideidle" perk to "Tester"`,
		`(boss) "tester" already has the perk "hideidle"`,
		`(boss) Added "showidle" perk to "tester"`,
		`(boss) "tester" has perks: ["hideidle" "showidle"]`,
		`(boss) "tester" doesn't have the perk "nope"`,
		`(boss) Removed "hideidle" perk from "tester"`,
		`(boss) Cleared all perks from "tester"`,
		`(boss) "tester" has no perks`,
	}, h.messages())
}

func TestUsage(t *testing.T) {
	h := setup(t)
	h.say("boss", ".addperk tester")
	_, notices, _ := h.c.Sent()
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0], "<account> <perk>")
}

func TestIdleModes(t *testing.T) {
	h := setup(t)
	h.say("tester", ".hidle")
	assert.Equal(t, []string{"(tester) No message configured (missing perk hideidle)"}, h.messages())

	h.say("boss", ".addperk tester hideidle")
	h.say("tester", ".hidle")
	assert.Equal(t, []string{"SAMODE tester +a"}, h.c.SentLines())

	require.NoError(t, h.m.Config().Set("perks.noperkmsg", "Get {perk_name} on patreon"))
	h.say("tester", ".showidle")
	msgs := h.messages()
	assert.Equal(t, "(tester) Done", msgs[len(msgs)-2])
	assert.Equal(t, "(tester) Get showidle on patreon", msgs[len(msgs)-1])
}

func TestIdleModesOnlyOnIrc(t *testing.T) {
	h := setup(t)
	h.c.ConnType = "discord"
	h.say("tester", ".hidle")
	assert.Empty(t, h.messages())
}
