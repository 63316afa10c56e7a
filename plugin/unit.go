// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package plugin

import (
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/schema"
)

// Unit is one plugin source unit: the functions and tables it defines, in
// the order it defines them, and the registry its declarations live in.
//
// Plugin packages build a new Unit every time they are asked for one, so a
// reload declares everything again.
type Unit struct {
	Name     string
	FilePath string
	Registry *hook.Registry
	Members  []any

	err error
}

// NewUnit returns an empty unit with its own registry.
func NewUnit(name, filePath string) *Unit {
	return &Unit{
		Name:     name,
		FilePath: filePath,
		Registry: hook.NewRegistry(),
	}
}

// Func adds f as a member and applies the decorators to it. The first
// error is kept and returned by Err; later calls are ignored.
func (u *Unit) Func(f *hook.Func, decs ...hook.Decorator) *hook.Func {
	if u.err != nil {
		return f
	}
	if _, err := u.Registry.Apply(f, decs...); err != nil {
		u.err = err
		return f
	}
	u.Members = append(u.Members, f)
	return f
}

// Table adds a table definition as a member.
func (u *Unit) Table(t *schema.Table) *schema.Table {
	u.Members = append(u.Members, t)
	return t
}

// Err returns the first declaration error.
func (u *Unit) Err() error {
	return u.err
}
