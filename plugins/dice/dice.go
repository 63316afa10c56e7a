// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package dice

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

// This is a dice plugin to serve as an example and quick copy/paste for new plugins.

var rollRegex = regexp.MustCompile(`(?i)^(\d+)d(\d+)$`)

// roll is swapped out in tests
var roll = func(sides int) int {
	return rand.Intn(sides) + 1
}

// New declares the dice roller. Roll dice using notation XdY, e.g. "3d20".
func New() *plugin.Unit {
	u := plugin.NewUnit("dice", "plugins/dice/dice.go")
	u.Func(&hook.Func{
		Name:     "roll",
		Params:   []string{"match", "nick"},
		Doc:      "XdY - rolls X dice with Y sides",
		Suspends: true,
		Fn:       rollCmd,
	}, hook.Regex(rollRegex))
	return u
}

func rollCmd(ctx context.Context, ev *event.Event) (any, error) {
	nDice, _ := strconv.Atoi(ev.Match[1])
	sides, _ := strconv.Atoi(ev.Match[2])

	if sides < 2 || nDice < 1 || nDice > 20 {
		return "You're a dick.", nil
	}

	rolls := make([]string, nDice)
	for i := range rolls {
		rolls[i] = strconv.Itoa(roll(sides))
	}
	return fmt.Sprintf("%s, you rolled: %s.", ev.Nick, strings.Join(rolls, ", ")), nil
}
