// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package brainfuck

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/event"
)

const hello = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func runBF(t *testing.T, program string) string {
	ev := event.New(event.Message, nil, nil)
	ev.Text = program
	res, err := bf(context.Background(), ev)
	require.NoError(t, err)
	return res.(string)
}

func TestHelloWorld(t *testing.T) {
	assert.Equal(t, "Hello World!", runBF(t, hello))
}

func TestUnbalanced(t *testing.T) {
	assert.Equal(t, "Unbalanced brackets", runBF(t, "[[]"))
	assert.Equal(t, "Unbalanced brackets", runBF(t, "]"))
}

func TestNoOutput(t *testing.T) {
	assert.Equal(t, "No output", runBF(t, "+++>"))
	assert.Equal(t, "No printable output", runBF(t, "+++++++++++."))
}

func TestCommentsIgnored(t *testing.T) {
	assert.Equal(t, "A", runBF(t, "this is ignored "+strings.Repeat("+", 65)+". so is this"))
}

func TestStepLimit(t *testing.T) {
	assert.Equal(t, "(no output)(exceeded 1000000 iterations)", runBF(t, "+[]"))
}

func TestOutputLimit(t *testing.T) {
	out := runBF(t, strings.Repeat("+", 65)+"[.]")
	assert.Len(t, out, maxReply)
	assert.True(t, strings.HasPrefix(out, "AAAA"))
}

func TestHighCellsPrintAsCodePoints(t *testing.T) {
	assert.Equal(t, "é", runBF(t, strings.Repeat("+", 233)+"."))

	out := runBF(t, strings.Repeat("+", 233)+"[.]")
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, maxReply, utf8.RuneCountInString(out))
}

func TestTapeGrows(t *testing.T) {
	program := strings.Repeat(">", bufferSize+10) + strings.Repeat("+", 66) + "."
	assert.Equal(t, "B", runBF(t, program))
}

func TestCommand(t *testing.T) {
	m := bot.NewMockManager()
	conn := bot.NewMockConn()
	require.NoError(t, m.Load(context.Background(), New()))
	assert.Contains(t, m.Commands(), "bf")
	assert.Contains(t, m.Commands(), "brainfuck")

	ev := event.New(event.Message, m, conn)
	ev.Nick, ev.Chan, ev.Content = "tester", "#test", ".bf "+hello
	m.Dispatch(context.Background(), ev)

	ev = event.New(event.Message, m, conn)
	ev.Nick, ev.Chan, ev.Content = "tester", "#test", ".bf"
	m.Dispatch(context.Background(), ev)

	messages, notices, _ := conn.Sent()
	assert.Equal(t, []string{"(tester) Hello World!"}, messages)
	assert.Equal(t, []string{".bf <prog> - executes <prog> as Brainfuck code"}, notices)
}
