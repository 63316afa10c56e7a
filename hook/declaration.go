// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import (
	"regexp"
	"strings"

	"github.com/velour/hookbase/event"
)

// Options are the named options given to a declaration.
type Options map[string]any

func (o Options) clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// pop removes key and returns its value, or fallback when it is absent.
func (o Options) pop(key string, fallback any) any {
	v, ok := o[key]
	if !ok {
		return fallback
	}
	delete(o, key)
	return v
}

// defaultInterval is the periodic interval in seconds when none is given.
const defaultInterval = 60.0

// Declaration is the pending, unresolved record of one hook kind on one
// function. Only the fields of its kind are used.
type Declaration struct {
	Kind    Kind
	Func    *Func
	Options Options

	// command
	Aliases   []string
	MainAlias string
	Doc       string

	// regex
	Regexes []*regexp.Regexp

	// event
	Types []event.Type

	// irc_raw
	Triggers []string

	// periodic, in seconds
	Interval float64

	// on_cap_ack, on_cap_available
	Caps []string

	// perm_check
	Perms []string
}

func newDeclaration(kind Kind, f *Func) *Declaration {
	d := &Declaration{
		Kind:    kind,
		Func:    f,
		Options: Options{},
	}
	switch kind {
	case KindCommand:
		d.Doc = normalizeDoc(f.Doc)
	case KindPeriodic:
		d.Interval = defaultInterval
	}
	return d
}

// addOptions merges opts, later values overwriting earlier ones.
func (d *Declaration) addOptions(opts []Opt) {
	for _, o := range opts {
		d.Options[o.Key] = o.Value
	}
}

func addUnique[T comparable](set []T, vals ...T) []T {
outer:
	for _, v := range vals {
		for _, s := range set {
			if s == v {
				continue outer
			}
		}
		set = append(set, v)
	}
	return set
}

// normalizeDoc turns a doc comment into a single line: the first
// paragraph with its newlines collapsed.
func normalizeDoc(doc string) string {
	if strings.TrimSpace(doc) == "" {
		return ""
	}
	para := []string{}
	for _, l := range strings.Split(cleanDoc(doc), "\n") {
		if strings.TrimSpace(l) == "" {
			break
		}
		para = append(para, l)
	}
	return strings.TrimSpace(strings.Join(para, " "))
}

// cleanDoc strips the common indentation from doc and drops leading and
// trailing blank lines.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	lines[0] = strings.TrimLeft(lines[0], " ")

	margin := -1
	for _, l := range lines[1:] {
		content := strings.TrimLeft(l, " ")
		if content == "" {
			continue
		}
		if indent := len(l) - len(content); margin < 0 || indent < margin {
			margin = indent
		}
	}
	for i := 1; i < len(lines); i++ {
		if margin >= 0 && len(lines[i]) >= margin {
			lines[i] = lines[i][margin:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " ")
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
