// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package beats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

const (
	wut = "Instead of hours and minutes, the mean solar day is divided " +
		"up into 1000 parts called \".beats\". Each .beat lasts 1 minute and" +
		" 26.4 seconds. Times are notated as a 3-digit number out of 1000 af" +
		"ter midnight. So, @248 would indicate a time 248 .beats after midni" +
		"ght representing 248/1000 of a day, just over 5 hours and 57 minute" +
		"s. There are no timezones."
	guide = "1 day = 1000 .beats, 1 hour = 41.666 .beats, 1 min = 0.6944 .beats, 1 second = 0.01157 .beats"
)

// now is swapped out in tests
var now = time.Now

func New() *plugin.Unit {
	u := plugin.NewUnit("beats", "plugins/beats/beats.go")
	u.Func(&hook.Func{
		Name:     "beats",
		Params:   []string{"event"},
		Doc:      "- Gets the current time in .beats (Swatch Internet Time).",
		Suspends: true,
		Fn:       beats,
	}, hook.Command().With(hook.AutoHelp(false)))
	return u
}

func beats(_ context.Context, ev *event.Event) (any, error) {
	switch strings.ToLower(strings.TrimSpace(ev.Text)) {
	case "wut":
		return wut, nil
	case "guide":
		return guide, nil
	}
	return fmt.Sprintf("Swatch Internet Time: @%06.2f", Beat(now())), nil
}

// Beat is the Swatch Internet Time for t, measured from midnight in Biel.
func Beat(t time.Time) float64 {
	t = t.UTC()
	utc := 3600*t.Hour() + 60*t.Minute() + t.Second()
	bmt := utc + 3600
	beat := float64(bmt) / 86.4
	if beat > 1000 {
		beat -= 1000
	}
	return beat
}
