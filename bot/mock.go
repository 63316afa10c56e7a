// © 2016 the CatBase Authors under the WTFPL license. See AUTHORS for the list of authors.

package bot

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/velour/hookbase/config"
)

// MockConn is an event.Conn that records what hooks send through it.
type MockConn struct {
	mock.Mock

	ConnName string
	ConnType string
	BotNick  string

	mu       sync.Mutex
	Messages []string
	Notices  []string
	Actions  []string
	Lines    []string
}

// NewMockConn returns an irc type connection named "test" for nick "hookbase".
func NewMockConn() *MockConn {
	return &MockConn{
		ConnName: "test",
		ConnType: "irc",
		BotNick:  "hookbase",
	}
}

func (c *MockConn) Name() string { return c.ConnName }
func (c *MockConn) Type() string { return c.ConnType }
func (c *MockConn) Nick() string { return c.BotNick }

func (c *MockConn) Message(target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, text)
	return nil
}

func (c *MockConn) Notice(target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notices = append(c.Notices, text)
	return nil
}

func (c *MockConn) Action(target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Actions = append(c.Actions, text)
	return nil
}

// Send records a raw line. If expectations were set with On, the call is
// checked against them.
func (c *MockConn) Send(line string) error {
	c.mu.Lock()
	c.Lines = append(c.Lines, line)
	expect := len(c.ExpectedCalls) > 0
	c.mu.Unlock()
	if expect {
		return c.Called(line).Error(0)
	}
	return nil
}

// Sent returns a copy of everything sent, by method.
func (c *MockConn) Sent() (messages, notices, actions []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := func(s []string) []string { return append([]string{}, s...) }
	return cp(c.Messages), cp(c.Notices), cp(c.Actions)
}

// SentLines returns a copy of the raw lines sent.
func (c *MockConn) SentLines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.Lines...)
}

// NewMockManager returns a Manager backed by an in-memory database.
func NewMockManager() *Manager {
	return New(config.ReadConfig(":memory:"))
}
