package stats

import (
	"sync/atomic"
	"time"
)

// Stats counts traffic through the bot.
type Stats struct {
	messagesSent atomic.Int64
	messagesRcv  atomic.Int64
	hooksRun     atomic.Int64
	hookErrors   atomic.Int64
	startTime    time.Time
}

// Snapshot is a point in time copy of Stats.
type Snapshot struct {
	MessagesSent int64  `json:"messages_sent"`
	MessagesRcv  int64  `json:"messages_received"`
	HooksRun     int64  `json:"hooks_run"`
	HookErrors   int64  `json:"hook_errors"`
	Uptime       string `json:"uptime"`
}

func New() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) Sent()     { s.messagesSent.Add(1) }
func (s *Stats) Received() { s.messagesRcv.Add(1) }

// Ran records one hook run and whether it failed.
func (s *Stats) Ran(err error) {
	s.hooksRun.Add(1)
	if err != nil {
		s.hookErrors.Add(1)
	}
}

func (s *Stats) Uptime() string {
	return time.Now().Sub(s.startTime).Truncate(time.Second).String()
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		MessagesSent: s.messagesSent.Load(),
		MessagesRcv:  s.messagesRcv.Load(),
		HooksRun:     s.hooksRun.Load(),
		HookErrors:   s.hookErrors.Load(),
		Uptime:       s.Uptime(),
	}
}
