// © 2016 the CatBase Authors under the WTFPL license. See AUTHORS for the list of authors.

// Leftpad contains the plugin that allows the bot to pad messages
package leftpad

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/chrissexton/leftpad"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

var leftpadRegex = regexp.MustCompile(`(?i)^leftpad (\S+) (\d+) (.+)$`)

// New creates the leftpad unit.
func New() *plugin.Unit {
	u := plugin.NewUnit("leftpad", "plugins/leftpad/leftpad.go")
	u.Func(&hook.Func{
		Name:     "leftpad",
		Params:   []string{"match", "bot", "message"},
		Doc:      "leftpad <padstr> <padding> <text> - pads <text> out to <padding> with <padstr>",
		Suspends: true,
		Fn:       leftpadCmd,
	}, hook.Regex(leftpadRegex))
	return u
}

func leftpadCmd(ctx context.Context, ev *event.Event) (any, error) {
	padchar := ev.Match[1]
	length, err := strconv.Atoi(ev.Match[2])
	if err != nil {
		return nil, ev.Message("Invalid padding number")
	}
	c := ev.Bot.Config()
	maxLen, who := c.GetInt("LeftPad.MaxLen", 50), c.Get("LeftPad.Who", "Putin")
	if length > maxLen && maxLen > 0 {
		return nil, ev.Message(fmt.Sprintf("%s would kill me if I did that.", who))
	}
	text := ev.Match[3]

	return nil, ev.Message(leftpad.LeftPad(text, length, padchar))
}
