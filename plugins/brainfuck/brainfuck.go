// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package brainfuck runs Brainfuck programs from chat.
package brainfuck

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

const (
	bufferSize = 5000
	maxSteps   = 1000000
	maxOutput  = 500
	maxReply   = 430
)

var (
	notCode      = regexp.MustCompile(`[^\]\[<>+\-.,]`)
	nonPrintable = regexp.MustCompile(`[\x00-\x1f]`)

	errUnbalanced = errors.New("Unbalanced brackets")
)

func New() *plugin.Unit {
	u := plugin.NewUnit("brainfuck", "plugins/brainfuck/brainfuck.go")
	u.Func(&hook.Func{
		Name:   "bf",
		Params: []string{"text"},
		Doc:    "<prog> - executes <prog> as Brainfuck code",
		Fn:     bf,
	}, hook.Command("brainfuck", "bf"))
	return u
}

func bf(ctx context.Context, ev *event.Event) (any, error) {
	program := notCode.ReplaceAllString(ev.Text, "")
	brackets, err := matchBrackets(program)
	if err != nil {
		return err.Error(), nil
	}

	output := run(ctx, program, brackets)
	stripped := nonPrintable.ReplaceAllString(output, "")
	if stripped == "" {
		if output != "" {
			return "No printable output", nil
		}
		return "No output", nil
	}
	if r := []rune(stripped); len(r) > maxReply {
		stripped = string(r[:maxReply])
	}
	return stripped, nil
}

// matchBrackets pairs every [ with its ] in both directions.
func matchBrackets(program string) (map[int]int, error) {
	brackets := map[int]int{}
	open := []int{}
	for pos, c := range program {
		switch c {
		case '[':
			open = append(open, pos)
		case ']':
			if len(open) == 0 {
				return nil, errUnbalanced
			}
			last := open[len(open)-1]
			brackets[pos] = last
			brackets[last] = pos
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return nil, errUnbalanced
	}
	return brackets, nil
}

func run(ctx context.Context, program string, brackets map[int]int) string {
	memory := make([]byte, bufferSize)
	ip, mp, steps := 0, 0, 0
	// each cell prints as the code point it holds
	output := []rune{}

	for ip < len(program) {
		switch program[ip] {
		case '+':
			memory[mp]++
		case '-':
			memory[mp]--
		case '>':
			mp++
			if mp >= len(memory) {
				memory = append(memory, make([]byte, bufferSize)...)
			}
		case '<':
			// moving off the left edge wraps to the right one
			mp--
			if mp < 0 {
				mp = len(memory) - 1
			}
		case '.':
			output = append(output, rune(memory[mp]))
			if len(output) > maxOutput {
				return string(output)
			}
		case ',':
			memory[mp] = byte(rand.Intn(255) + 1)
		case '[':
			if memory[mp] == 0 {
				ip = brackets[ip]
			}
		case ']':
			if memory[mp] != 0 {
				ip = brackets[ip]
			}
		}

		ip++
		steps++
		if steps > maxSteps {
			if len(output) == 0 {
				output = []rune("(no output)")
			}
			return string(output) + fmt.Sprintf("(exceeded %d iterations)", maxSteps)
		}
		if steps%10000 == 0 && ctx.Err() != nil {
			return string(output)
		}
	}
	return string(output)
}
