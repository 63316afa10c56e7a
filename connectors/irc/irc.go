// © 2016 the CatBase Authors under the WTFPL license. See AUTHORS for the list of authors.

package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/velour/velour/irc"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/config"
	"github.com/velour/hookbase/event"
)

const (
	// InitialTimeout is the initial amount of time
	// to delay before reconnecting. Each failed
	// reconnection grows the timeout until
	// a connection is made successfully.
	initialTimeout = 2 * time.Second

	// PingTime is the amount of inactive time
	// to wait before sending a ping to the server.
	pingTime = 120 * time.Second

	actionPrefix = "\x01ACTION"

	// rplWelcome is sent once registration with the server is complete.
	rplWelcome = "001"
)

var formatting = regexp.MustCompile(`\x03(\d{1,2}(,\d{1,2})?)?|[\x02\x0f\x16\x1d\x1f]`)

type Irc struct {
	config *config.Config
	bot    bot.Bot

	client *irc.Client
	out    chan<- irc.Msg

	throttle <-chan time.Time
	ctx      context.Context

	mu       sync.Mutex
	wantCaps []string
}

func New(c *config.Config, b bot.Bot) *Irc {
	i := &Irc{
		config: c,
		bot:    b,
		ctx:    context.Background(),
	}
	if rate := c.GetInt("ratepersec", 5); rate > 0 {
		i.throttle = time.Tick(time.Second / time.Duration(rate))
	}
	return i
}

func (i *Irc) Name() string { return i.config.Get("irc.server", "irc") }
func (i *Irc) Type() string { return "irc" }
func (i *Irc) Nick() string { return i.config.Get("nick", "hookbase") }

// Message sends text to target, split over as many PRIVMSGs as it takes.
func (i *Irc) Message(target, text string) error {
	return i.sendText(irc.PRIVMSG, target, text)
}

// Notice sends text to target as NOTICEs.
func (i *Irc) Notice(target, text string) error {
	return i.sendText(irc.NOTICE, target, text)
}

// Sends action to channel
func (i *Irc) Action(target, text string) error {
	return i.sendText(irc.PRIVMSG, target, actionPrefix+" "+text+"\x01")
}

// Send sends a raw IRC line.
func (i *Irc) Send(line string) error {
	m := parseLine(line)
	if m.Cmd == "" {
		return fmt.Errorf("empty irc line %q", line)
	}
	return i.send(m)
}

func (i *Irc) sendText(cmd, target, text string) error {
	for len(text) > 0 {
		m := irc.Msg{
			Cmd:  cmd,
			Args: []string{target, text},
		}
		_, err := m.RawString()
		var mtl irc.MsgTooLong
		if errors.As(err, &mtl) {
			// NTrunc counts the bytes that did not fit
			keep := len(text) - mtl.NTrunc
			for keep > 0 && !utf8.RuneStart(text[keep]) {
				keep--
			}
			if keep <= 0 {
				return err
			}
			m.Args[1] = text[:keep]
			text = text[keep:]
		} else {
			text = ""
		}

		if i.throttle != nil {
			<-i.throttle
		}
		if err := i.send(m); err != nil {
			return err
		}
	}
	return nil
}

// send passes m through the irc_out hooks and writes whatever survives.
func (i *Irc) send(m irc.Msg) error {
	line, err := m.RawString()
	if err != nil {
		return err
	}
	filtered, ok := i.bot.Outgoing(i.ctx, i, line)
	if !ok {
		return nil
	}
	if filtered != line {
		m = parseLine(filtered)
	}
	i.mu.Lock()
	out := i.out
	i.mu.Unlock()
	if out == nil {
		return fmt.Errorf("not connected")
	}
	out <- m
	return nil
}

// Serve connects to the configured server and feeds every line to the bot,
// reconnecting with backoff until ctx is done.
func (i *Irc) Serve(ctx context.Context) error {
	i.ctx = ctx
	for {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initialTimeout
		b.MaxElapsedTime = 0
		err := backoff.Retry(func() error {
			err := i.connect()
			if err != nil {
				log.Error().Err(err).Msg("Could not connect")
			}
			return err
		}, backoff.WithContext(b, ctx))
		if err != nil {
			return err
		}

		i.handleConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Info().Msg("Disconnected, reconnecting")
	}
}

func (i *Irc) connect() error {
	var err error
	i.client, err = irc.DialSSL(
		i.config.Get("irc.server", "localhost"),
		i.Nick(),
		i.config.Get("fullname", "hookbase"),
		i.config.Get("irc.pass", ""),
		true,
	)
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.out = i.client.Out
	i.wantCaps = nil
	i.mu.Unlock()
	return i.send(irc.Msg{Cmd: "CAP", Args: []string{"LS", "302"}})
}

func (i *Irc) handleConnection(ctx context.Context) {
	t := time.NewTimer(pingTime)

	defer func() {
		t.Stop()
		i.mu.Lock()
		i.out = nil
		i.mu.Unlock()
		close(i.client.Out)
		for err := range i.client.Errors {
			if err != io.EOF {
				log.Error().Err(err).Msg("irc connection error")
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-i.client.In:
			if !ok { // disconnect
				return
			}
			t.Stop()
			t = time.NewTimer(pingTime)
			i.handleMsg(ctx, msg)

		case <-t.C:
			i.send(irc.Msg{Cmd: irc.PING, Args: []string{i.client.Server}})
			t = time.NewTimer(pingTime)

		case err, ok := <-i.client.Errors:
			if ok && err != io.EOF {
				log.Error().Err(err).Msg("irc connection error")
				return
			}
		}
	}
}

// handleMsg handles IRC messages from the server.
func (i *Irc) handleMsg(ctx context.Context, msg irc.Msg) {
	switch msg.Cmd {
	case irc.ERROR:
		log.Info().Msgf("Received error: %s", msg.Raw)

	case irc.PING:
		i.send(irc.Msg{Cmd: irc.PONG, Args: msg.Args})

	case "CAP":
		i.handleCap(ctx, msg)

	case rplWelcome:
		i.bot.Connected(ctx, i)

	default:
		if name, ok := irc.CmdNames[msg.Cmd]; ok {
			log.Debug().Msgf("(%s) %s", name, msg.Raw)
		}
	}

	i.bot.Submit(i.buildEvent(msg))
}

// handleCap negotiates capabilities: every capability the server lists is
// offered to the bot's cap hooks, and the wanted ones are requested.
func (i *Irc) handleCap(ctx context.Context, msg irc.Msg) {
	if len(msg.Args) < 3 {
		return
	}
	sub := strings.ToUpper(msg.Args[1])
	list := msg.Args[len(msg.Args)-1]
	more := len(msg.Args) > 3 && msg.Args[2] == "*"

	switch sub {
	case "LS":
		wanted := []string{}
		for _, c := range strings.Fields(list) {
			name, _, _ := strings.Cut(c, "=")
			if i.bot.CapAvailable(ctx, i, name) {
				wanted = append(wanted, name)
			}
		}
		i.mu.Lock()
		i.wantCaps = append(i.wantCaps, wanted...)
		want := append([]string(nil), i.wantCaps...)
		i.mu.Unlock()
		if more {
			return
		}
		if len(want) == 0 {
			i.send(irc.Msg{Cmd: "CAP", Args: []string{"END"}})
			return
		}
		i.send(irc.Msg{Cmd: "CAP", Args: []string{"REQ", strings.Join(want, " ")}})

	case "ACK":
		for _, c := range strings.Fields(list) {
			if strings.HasPrefix(c, "-") {
				continue
			}
			i.bot.CapAck(ctx, i, c)
		}
		i.send(irc.Msg{Cmd: "CAP", Args: []string{"END"}})

	case "NAK":
		log.Warn().Msgf("Server refused capabilities: %s", list)
		i.send(irc.Msg{Cmd: "CAP", Args: []string{"END"}})
	}
}

// buildEvent turns a line from the server into an event.
func (i *Irc) buildEvent(msg irc.Msg) *event.Event {
	ev := event.New(event.Other, i.bot, i)
	ev.IrcRaw = msg.Raw
	ev.IrcCommand = msg.Cmd
	ev.IrcParamList = append([]string{}, msg.Args...)
	ev.Nick = msg.Origin
	ev.Host = msg.Host
	if prefix, ok := linePrefix(msg.Raw); ok {
		ev.Mask = prefix
		if _, rest, ok := strings.Cut(prefix, "!"); ok {
			ev.User, _, _ = strings.Cut(rest, "@")
		}
	}

	switch msg.Cmd {
	case irc.PRIVMSG:
		ev.Type = event.Message
	case irc.NOTICE:
		ev.Type = event.Notice
	case irc.JOIN:
		ev.Type = event.Join
	case irc.PART:
		ev.Type = event.Part
	case irc.KICK:
		ev.Type = event.Kick
	}

	if len(msg.Args) > 0 && ev.Type != event.Other {
		ev.Chan = msg.Args[0]
		if strings.EqualFold(ev.Chan, i.Nick()) {
			ev.Chan = ev.Nick
		}
	}

	if (ev.Type == event.Message || ev.Type == event.Notice || ev.Type == event.Part || ev.Type == event.Kick) && len(msg.Args) > 1 {
		content := msg.Args[len(msg.Args)-1]
		if ev.Type == event.Message && strings.HasPrefix(content, actionPrefix) {
			ev.Type = event.Action
			content = strings.TrimSpace(strings.TrimRight(content[len(actionPrefix):], "\x01"))
		}
		ev.ContentRaw = content
		ev.Content = formatting.ReplaceAllString(content, "")
	}
	return ev
}

func linePrefix(raw string) (string, bool) {
	if !strings.HasPrefix(raw, ":") {
		return "", false
	}
	prefix, _, _ := strings.Cut(raw[1:], " ")
	return prefix, prefix != ""
}

// parseLine turns a raw IRC line, e.g. one rewritten by an irc_out hook, back
// into a message.
func parseLine(line string) irc.Msg {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return irc.Msg{Raw: line}
	}
	m, err := irc.ParseMsg(line)
	if err != nil {
		return irc.Msg{Raw: line}
	}
	m.Cmd = strings.ToUpper(m.Cmd)
	return m
}
