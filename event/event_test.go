package event

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/config"
)

type line struct{ kind, target, text string }

type recConn struct{ lines []line }

func (c *recConn) Name() string { return "test" }
func (c *recConn) Type() string { return "irc" }
func (c *recConn) Nick() string { return "hookbase" }
func (c *recConn) Message(target, text string) error {
	c.lines = append(c.lines, line{"message", target, text})
	return nil
}
func (c *recConn) Notice(target, text string) error {
	c.lines = append(c.lines, line{"notice", target, text})
	return nil
}
func (c *recConn) Action(target, text string) error {
	c.lines = append(c.lines, line{"action", target, text})
	return nil
}
func (c *recConn) Send(string) error { return nil }

type cfgBot struct{ c *config.Config }

func (b cfgBot) Config() *config.Config { return b.c }
func (b cfgBot) DB() *sqlx.DB           { return b.c.DB }

func TestReplyAddressesSenderInChannel(t *testing.T) {
	c := &recConn{}
	ev := New(Message, nil, c)
	ev.Nick, ev.Chan = "tester", "#test"
	require.NoError(t, ev.Reply("hi"))

	ev.Chan = "tester"
	require.NoError(t, ev.Reply("psst"))

	assert.Equal(t, []line{
		{"message", "#test", "(tester) hi"},
		{"message", "tester", "psst"},
	}, c.lines)
}

func TestNoConnection(t *testing.T) {
	ev := New(Message, nil, nil)
	assert.Error(t, ev.Reply("hi"))
	assert.Error(t, ev.Message("hi"))
	assert.Error(t, ev.Action("hi"))
	assert.Error(t, ev.Notice("hi"))
}

func TestNoticeDoc(t *testing.T) {
	cfg := config.ReadConfig(":memory:")
	defer cfg.Close()
	require.NoError(t, cfg.Set("commandchar", "!"))

	c := &recConn{}
	ev := New(Message, cfgBot{cfg}, c)
	ev.Nick, ev.TriggeredCommand = "tester", "remind"

	require.NoError(t, ev.NoticeDoc())
	ev.Doc = "<who> <when> <what> - pester someone"
	require.NoError(t, ev.NoticeDoc())
	ev.Doc = "remind <who> - old style"
	require.NoError(t, ev.NoticeDoc())

	assert.Equal(t, []line{
		{"notice", "tester", "remind requires additional arguments."},
		{"notice", "tester", "!remind <who> <when> <what> - pester someone"},
		{"notice", "tester", "!remind <who> - old style"},
	}, c.lines)
}

func TestCopyGetsNewID(t *testing.T) {
	ev := New(Other, nil, nil)
	ev.IrcParamList = []string{"a", "b"}
	cp := ev.Copy()
	assert.NotEqual(t, ev.ID, cp.ID)
	cp.IrcParamList[0] = "z"
	assert.Equal(t, "a", ev.IrcParamList[0])
}

func TestProvides(t *testing.T) {
	ev := New(Message, nil, &recConn{})
	assert.True(t, ev.Provides("event"))
	assert.True(t, ev.Provides("conn"))
	assert.False(t, ev.Provides("bot"))
	assert.False(t, ev.Provides("reply"))
	ev.Chan = "#test"
	assert.True(t, ev.Provides("reply"))
	assert.False(t, ev.Provides("match"))
	ev.Match = []string{"x"}
	assert.True(t, ev.Provides("match"))
	assert.False(t, ev.Provides("result"))
	assert.False(t, ev.Provides("nonsense"))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "action", Action.String())
	assert.Equal(t, "type(42)", Type(42).String())
}
