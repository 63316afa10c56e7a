// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import (
	"errors"
	"fmt"
)

var ErrNilFunc = errors.New("hook: nil function")

// UsageError is returned when a kind that needs match data is handed a
// function instead, e.g. Regex(f) where Regex("...") was meant.
type UsageError struct {
	Kind Kind
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s hook must be given its match data, not a function", e.Kind)
}

// InvalidNameError is returned for command aliases that are not made of word characters.
type InvalidNameError struct {
	Alias string
	Func  string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("Invalid command name %s (declared on %s)", e.Alias, e.Func)
}

// ArityError is returned for sieves that do not take exactly bot, event and hook.
type ArityError struct {
	Func string
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("sieve %s has %d params, needs 3: bot, event, hook", e.Func, e.Got)
}
