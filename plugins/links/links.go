// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

// Package links announces the titles of pages linked in chat.
package links

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/velour/hookbase/event"
	"github.com/velour/hookbase/hook"
	"github.com/velour/hookbase/plugin"
)

const (
	maxTitle  = 100
	maxRecv   = 1000000
	timeout   = 3 * time.Second
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/53.0.2785.116 Safari/537.36"
)

var (
	urlRegex = regexp.MustCompile(`(?i)https?://[^\s<>"'{}|\\^` + "`" + `]+`)

	allowedPorts = map[string]bool{"": true, "80": true, "443": true}

	errInsecure = errors.New("insecure request")

	// swapped out in tests
	allowed  = isURLAllowed
	lookupIP = func(ctx context.Context, host string) ([]net.IPAddr, error) {
		return net.DefaultResolver.LookupIPAddr(ctx, host)
	}
)

func New() *plugin.Unit {
	u := plugin.NewUnit("links", "plugins/links/links.go")
	u.Func(&hook.Func{
		Name:   "print_url_title",
		Params: []string{"match", "message", "bot"},
		Fn:     printURLTitle,
	}, hook.Regex(urlRegex).With(
		hook.WithPriority(hook.Low),
		hook.WithAction(hook.HaltType),
		hook.OnlyNoMatch(),
	))
	return u
}

func printURLTitle(ctx context.Context, ev *event.Event) (any, error) {
	link := strings.TrimRight(ev.Match[0], ".,?!])")
	title, err := fetchTitle(ctx, link)
	if err != nil {
		log.Debug().Err(err).Msgf("Could not announce %s", link)
		return nil, nil
	}
	if title == "" {
		return nil, nil
	}

	limit := maxTitle
	if ev.Bot != nil && ev.Bot.Config() != nil {
		limit = ev.Bot.Config().GetInt("links.maxtitle", maxTitle)
	}
	if r := []rune(title); len(r) > limit {
		title = string(r[:limit]) + " ... [trunc]"
	}
	return nil, ev.Message(fmt.Sprintf("Title: \x02%s\x02", title))
}

// fetchTitle loads link and returns its <title>, refusing to talk to
// loopback addresses, bare IPs or odd ports, also across redirects.
func fetchTitle(ctx context.Context, link string) (string, error) {
	if !allowed(ctx, link) {
		return "", errInsecure
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			if !allowed(req.Context(), req.URL.String()) {
				return errInsecure
			}
			return nil
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s returned %s", link, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxRecv))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func isURLAllowed(ctx context.Context, link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if !allowedPorts[u.Port()] {
		return false
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return false
	}
	addrs, err := lookupIP(ctx, host)
	if err != nil {
		return true
	}
	for _, a := range addrs {
		if a.IP.IsLoopback() {
			return false
		}
	}
	return true
}
