// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package notes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/event"
)

type harness struct {
	t    *testing.T
	m    *bot.Manager
	conn *bot.MockConn
}

func setup(t *testing.T) *harness {
	m := bot.NewMockManager()
	require.NoError(t, m.Load(context.Background(), New()))
	t.Cleanup(func() { m.Unload(context.Background(), "notes") })
	return &harness{t: t, m: m, conn: bot.NewMockConn()}
}

func (h *harness) say(nick, content string) {
	ev := event.New(event.Message, h.m, h.conn)
	ev.Nick, ev.Chan, ev.Content = nick, "#test", content
	h.m.Dispatch(context.Background(), ev)
}

func (h *harness) notices() []string {
	_, notices, _ := h.conn.Sent()
	return notices
}

func TestAddAndList(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note add buy milk")
	h.say("tester", ".todo new call mom")
	h.say("tester", ".notes list")

	notices := h.notices()
	require.Len(t, notices, 5)
	assert.Equal(t, "Note added!", notices[0])
	assert.Equal(t, "All notes for tester:", notices[2])
	assert.Contains(t, notices[3], "\x02Note #1:\x02 buy milk - ")
	assert.Contains(t, notices[4], "\x02Note #2:\x02 call mom - ")
}

func TestNotesArePerUser(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note add mine")
	h.say("Other", ".note list")
	assert.Equal(t, []string{"Note added!", "You have no notes."}, h.notices())
}

func TestGetAndShow(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note add secret plans")
	h.say("tester", ".note 1")
	h.say("tester", ".note show 1")
	h.say("tester", ".note get 7")

	notices := h.notices()
	require.Len(t, notices, 3)
	assert.Contains(t, notices[1], "secret plans")
	assert.Equal(t, "7 is not a valid note ID.", notices[2])

	messages, _, _ := h.conn.Sent()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "(tester) \x02Note #1:\x02 secret plans")
}

func TestDeleteAndListAll(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note add one")
	h.say("tester", ".note add two")
	h.say("tester", ".note del 1")
	h.say("tester", ".note delete 9")
	h.say("tester", ".note list")
	h.say("tester", ".note listall")

	notices := h.notices()
	assert.Equal(t, "Note #1 deleted!", notices[2])
	assert.Equal(t, "#9 is not a valid note ID.", notices[3])
	assert.Equal(t, "All notes for tester:", notices[4])
	assert.Contains(t, notices[5], "two")
	assert.Equal(t, "All notes for tester:", notices[6])
	assert.Len(t, notices, 9)
}

func TestClear(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note add one")
	h.say("tester", ".note clear")
	h.say("tester", ".note list")
	assert.Equal(t, []string{"Note added!", "All notes deleted!", "You have no notes."}, h.notices())
}

func TestMissingArgs(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note add")
	h.say("tester", ".note del")
	messages, _, _ := h.conn.Sent()
	assert.Equal(t, []string{"(tester) No text provided!", "(tester) No note ID provided!"}, messages)
}

func TestUnknownSubcommand(t *testing.T) {
	h := setup(t)
	h.say("tester", ".note frobnicate")
	assert.Equal(t, []string{
		"Unknown command: frobnicate",
		".note <add|list|get|del|clear> args - manipulates your list of notes",
	}, h.notices())
}

func TestAutoHelp(t *testing.T) {
	h := setup(t)
	h.say("tester", ".todo")
	assert.Equal(t, []string{".todo <add|list|get|del|clear> args - manipulates your list of notes"}, h.notices())
}
