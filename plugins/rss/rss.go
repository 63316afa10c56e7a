package rss

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

type RSSPlugin struct {
	mu    sync.Mutex
	cache map[string]*cacheItem
}

type cacheItem struct {
	key         string
	data        []string
	currentLine int
	expiration  time.Time
}

func (c *cacheItem) getCurrentPage(maxLines int) []string {
	if len(c.data) <= maxLines {
		return c.data
	}

	start := c.currentLine
	end := start + maxLines
	if end > len(c.data) {
		end = len(c.data)
	}

	page := append([]string{}, c.data[start:end]...)

	if end-start == maxLines {
		c.currentLine = end
	} else {
		c.currentLine = maxLines - (end - start)
		page = append(page, c.data[0:c.currentLine]...)
	}

	return page
}

func New() *plugin.Unit {
	p := &RSSPlugin{cache: map[string]*cacheItem{}}
	u := plugin.NewUnit("rss", "plugins/rss/rss.go")
	u.Func(&hook.Func{
		Name:   "rss",
		Params: []string{"text", "bot"},
		Doc:    "<url> - shows the latest titles from the feed at <url>, try 'rss http://rss.cnn.com/rss/edition.rss'",
		Fn:     p.rss,
	}, hook.Command("rss", "feed"))
	return u
}

func (p *RSSPlugin) rss(ctx context.Context, ev *event.Event) (any, error) {
	c := ev.Bot.Config()
	shelfLife := time.Minute * time.Duration(c.GetInt("rss.shelfLife", 20))
	maxLines := c.GetInt("rss.maxLines", 5)

	url := strings.Fields(ev.Text)[0]
	key := strings.ToLower(url)

	p.mu.Lock()
	item, ok := p.cache[key]
	if ok && time.Now().Before(item.expiration) {
		page := item.getCurrentPage(maxLines)
		p.mu.Unlock()
		return page, nil
	}
	p.mu.Unlock()

	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return fmt.Sprintf("RSS error: %s", err.Error()), nil
	}
	item = &cacheItem{
		key:        key,
		data:       []string{feed.Title},
		expiration: time.Now().Add(shelfLife),
	}
	for _, feedItem := range feed.Items {
		item.data = append(item.data, feedItem.Title)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[key] = item
	return item.getCurrentPage(maxLines), nil
}
