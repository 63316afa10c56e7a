// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package hook

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velour/hookbase/event"
)

func noop(context.Context, *event.Event) (any, error) { return nil, nil }

func makeFunc(name string, params ...string) *Func {
	return &Func{Name: name, Params: params, Fn: noop}
}

func TestHookDecorate(t *testing.T) {
	r := NewRegistry()
	f := makeFunc("f")
	_, err := r.Apply(f,
		Regex([]any{"test", regexp.MustCompile("test")}),
		OnStop(),
		IrcOut(),
		IrcRaw([]string{"PRIVMSG"}),
		IrcRaw("*"),
		Command("test"),
		Event([]event.Type{event.Notice, event.Action}),
		Event(event.Message),
	)
	require.NoError(t, err)

	decls := r.Declarations(f)
	assert.ElementsMatch(t, []event.Type{event.Message, event.Notice, event.Action}, decls[KindEvent].Types)
	assert.Equal(t, []string{"test"}, decls[KindCommand].Aliases)
	assert.ElementsMatch(t, []string{"*", "PRIVMSG"}, decls[KindRaw].Triggers)
	assert.Contains(t, decls, KindIrcOut)
	assert.Contains(t, decls, KindOnStop)
	assert.Len(t, decls[KindRegex].Regexes, 2)
	assert.Len(t, decls, 6)
}

func TestInvalidCommandName(t *testing.T) {
	r := NewRegistry()
	f := makeFunc("f")
	_, err := r.Apply(f, Command("test"))
	require.NoError(t, err)

	_, err = r.Apply(f, Command("test 123"))
	var nameErr *InvalidNameError
	require.True(t, errors.As(err, &nameErr))
	assert.Equal(t, "test 123", nameErr.Alias)
	assert.Equal(t, "f", nameErr.Func)
	assert.Contains(t, err.Error(), "Invalid command name test 123")
	assert.Equal(t, []string{"test"}, r.Declaration(f, KindCommand).Aliases)
}

func TestValidCommandNames(t *testing.T) {
	for _, alias := range []string{"a", "note", "bf", "test_1", "X9"} {
		r := NewRegistry()
		f := makeFunc("f")
		_, err := r.Apply(f, Command(alias))
		require.NoError(t, err, alias)
		h, err := Resolve(testOwner, r.Declaration(f, KindCommand))
		require.NoError(t, err)
		assert.Contains(t, h.(*CommandHook).Aliases, alias)
	}
	for _, alias := range []string{"", "a-b", "a.b", "née", "foo!"} {
		_, err := NewRegistry().Apply(makeFunc("f"), Command(alias))
		var nameErr *InvalidNameError
		require.True(t, errors.As(err, &nameErr), alias)
		assert.Equal(t, alias, nameErr.Alias)
	}
}

func TestDirectFormMisuse(t *testing.T) {
	f := makeFunc("f")
	var h Handler = noop
	for _, d := range []Decorator{Periodic(f), Regex(f), Event(f), IrcRaw(f), Regex(h), IrcRaw(noop)} {
		var usage *UsageError
		require.True(t, errors.As(d.Err(), &usage), "kind %s", d.Kind())
		assert.Equal(t, d.Kind(), usage.Kind)

		r := NewRegistry()
		_, err := r.Apply(f, d)
		assert.ErrorAs(t, err, &usage)
		assert.False(t, r.Has(f))
	}
}

func TestSieveArity(t *testing.T) {
	r := NewRegistry()
	good := makeFunc("sieve_func", "bot", "event", "_hook")
	_, err := r.Apply(good, Sieve())
	require.NoError(t, err)
	assert.NotNil(t, r.Declaration(good, KindSieve))

	for _, params := range [][]string{{"bot", "event"}, {"bot", "event", "hook", "extra"}} {
		bad := makeFunc("bad", params...)
		_, err := r.Apply(bad, Sieve())
		var arity *ArityError
		require.True(t, errors.As(err, &arity))
		assert.Equal(t, len(params), arity.Got)
		assert.False(t, r.Has(bad))
	}
}

func TestSameKindMergesMatchDataAndOptions(t *testing.T) {
	r := NewRegistry()
	f := makeFunc("f")
	_, err := r.Apply(f,
		Command("a", "b").With(Option("x", 1), AutoHelp(false)),
		Command("b", "c").With(Option("x", 2)),
	)
	require.NoError(t, err)
	d := r.Declaration(f, KindCommand)
	assert.Equal(t, []string{"a", "b", "c"}, d.Aliases)
	assert.Equal(t, "a", d.MainAlias)
	assert.Equal(t, 2, d.Options["x"])
	assert.Equal(t, false, d.Options["autohelp"])
}

func TestRegexMixedPatterns(t *testing.T) {
	r := NewRegistry()
	f := makeFunc("f")
	_, err := r.Apply(f, Regex([]any{"a", regexp.MustCompile("b")}), Regex("c"))
	require.NoError(t, err)

	h, err := Resolve(testOwner, r.Declaration(f, KindRegex))
	require.NoError(t, err)
	pats := []string{}
	for _, re := range h.(*RegexHook).Regexes {
		pats = append(pats, re.String())
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, pats)
}

func TestRegexBadPattern(t *testing.T) {
	_, err := NewRegistry().Apply(makeFunc("f"), Regex("("))
	assert.Error(t, err)
	_, err = NewRegistry().Apply(makeFunc("f"), Regex(42))
	assert.Error(t, err)
}

func TestCommandHookDoc(t *testing.T) {
	docs := []string{
		"<arg> - foo\n        bar\n        baz\n\n        :type bot: object",
		"<arg> - foo bar baz\n\n        :type bot: object",
		"<arg> - foo bar baz",
		"\n        <arg> - foo bar baz\n        ",
		"<arg> - foo bar baz\n        ",
		"\t<arg> - foo\n\tbar baz\n\t\n\tmore",
	}
	for _, doc := range docs {
		r := NewRegistry()
		f := &Func{Name: "test", Params: []string{"bot"}, Doc: doc, Fn: noop}
		_, err := r.Apply(f, Command())
		require.NoError(t, err)
		assert.Equal(t, "<arg> - foo bar baz", r.Declaration(f, KindCommand).Doc, "%q", doc)
	}

	r := NewRegistry()
	f := makeFunc("nodoc")
	_, err := r.Apply(f, Command())
	require.NoError(t, err)
	assert.Equal(t, "", r.Declaration(f, KindCommand).Doc)
}

func TestClearDropsDeclarations(t *testing.T) {
	r := NewRegistry()
	f := makeFunc("f")
	_, err := r.Apply(f, OnStart(), OnConnect())
	require.NoError(t, err)
	assert.True(t, r.Has(f))
	r.Clear(f)
	assert.False(t, r.Has(f))
	assert.Empty(t, r.Declarations(f))
}

func TestAliasesAreEquivalent(t *testing.T) {
	assert.Equal(t, OnStart().Kind(), OnLoad().Kind())
	assert.Equal(t, OnStop().Kind(), OnUnload().Kind())
	assert.Equal(t, OnConnect().Kind(), Connect().Kind())
}

func TestNilFunc(t *testing.T) {
	_, err := NewRegistry().Apply(nil, Command())
	assert.ErrorIs(t, err, ErrNilFunc)
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() {
		Must(NewRegistry().Apply(makeFunc("f"), Command("bad name")))
	})
	assert.NotPanics(t, func() {
		Must(NewRegistry().Apply(makeFunc("f"), Command("good")))
	})
}
