// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package leftpad

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/event"
)

func makePlugin(t *testing.T) (*bot.Manager, *bot.MockConn) {
	m := bot.NewMockManager()
	require.NoError(t, m.Load(context.Background(), New()))
	require.NoError(t, m.Config().Set("LeftPad.MaxLen", "0"))
	return m, bot.NewMockConn()
}

func testMessage(m *bot.Manager, c *bot.MockConn, body string) []string {
	ev := event.New(event.Message, m, c)
	ev.Nick, ev.Chan, ev.Content = "tester", "#test", body
	m.Dispatch(context.Background(), ev)
	messages, _, _ := c.Sent()
	return messages
}

func TestLeftpad(t *testing.T) {
	m, c := makePlugin(t)
	messages := testMessage(m, c, "leftpad test 8 test")
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "testtest")
	}
}

func TestNotCommand(t *testing.T) {
	m, c := makePlugin(t)
	assert.Len(t, testMessage(m, c, "leftpad test fuck test"), 0)
}

func TestNoMaxLen(t *testing.T) {
	m, c := makePlugin(t)
	messages := testMessage(m, c, "leftpad dicks 100 dicks")
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "dicks")
	}
}

func Test50Padding(t *testing.T) {
	m, c := makePlugin(t)
	require.NoError(t, m.Config().Set("LeftPad.MaxLen", "50"))
	assert.Equal(t, 50, m.Config().GetInt("LeftPad.MaxLen", 100))
	messages := testMessage(m, c, "leftpad dicks 100 dicks")
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "kill me")
	}
}

func TestUnder50Padding(t *testing.T) {
	m, c := makePlugin(t)
	require.NoError(t, m.Config().Set("LeftPad.MaxLen", "50"))
	messages := testMessage(m, c, "leftpad dicks 49 dicks")
	if assert.Len(t, messages, 1) {
		assert.Contains(t, messages[0], "dicks")
	}
}

func TestNotPadding(t *testing.T) {
	m, c := makePlugin(t)
	assert.Len(t, testMessage(m, c, "lololol"), 0)
}
