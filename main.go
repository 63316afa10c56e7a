// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/velour/hookbase/bot"
	"github.com/velour/hookbase/config"
	"github.com/velour/hookbase/connectors/irc"
	"github.com/velour/hookbase/plugins/beats"
	"github.com/velour/hookbase/plugins/brainfuck"
	"github.com/velour/hookbase/plugins/core"
	"github.com/velour/hookbase/plugins/dice"
	"github.com/velour/hookbase/plugins/leftpad"
	"github.com/velour/hookbase/plugins/links"
	"github.com/velour/hookbase/plugins/notes"
	"github.com/velour/hookbase/plugins/perks"
	"github.com/velour/hookbase/plugins/reminder"
	"github.com/velour/hookbase/plugins/rss"
	"github.com/velour/hookbase/plugins/tell"
	"github.com/velour/hookbase/web"
)

const Version = "0.1.0"

var sources = []bot.Source{
	core.New,
	beats.New,
	brainfuck.New,
	dice.New,
	leftpad.New,
	links.New,
	notes.New,
	perks.New,
	reminder.New,
	rss.New,
	tell.New,
}

func run(c *cli.Context) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := config.ReadConfig(c.String("db"))
	defer cfg.Close()
	if cfg.GetInt("init", 0) != 1 {
		if c.String("channel") == "" || c.String("nick") == "" {
			cli.ShowAppHelp(c)
			return cli.NewExitError("A new database needs --channel and --nick.", 1)
		}
		cfg.SetDefaults(c.String("channel"), c.String("nick"))
	}
	if c.IsSet("server") {
		if err := cfg.Set("irc.server", c.String("server")); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := bot.New(cfg)
	for _, src := range sources {
		if err := m.LoadSource(ctx, src); err != nil {
			log.Error().Err(err).Msg("Could not load plugin")
		}
	}

	conn := irc.New(cfg, m)
	ws := web.New(cfg, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error { return conn.Serve(gctx) })
	if addr := cfg.Get("httpaddr", ""); addr != "" {
		g.Go(func() error { return ws.ListenAndServe(gctx, addr) })
	}

	err := g.Wait()
	log.Info().Msg("Shutting down")
	if serr := m.Shutdown(context.Background()); serr != nil {
		log.Error().Err(serr).Msg("Error during shutdown")
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "hookbase"
	app.Version = Version
	app.Usage = "an IRC bot built from hook plugins"
	app.Action = run
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "db",
			Usage:  "Database file to load.",
			Value:  "hookbase.db",
			EnvVar: "HOOKBASE_DB",
		},
		cli.StringFlag{
			Name:  "channel",
			Usage: "Channel to join when creating a new database.",
		},
		cli.StringFlag{
			Name:  "nick",
			Usage: "Nick to use when creating a new database.",
		},
		cli.StringFlag{
			Name:  "server",
			Usage: "IRC server to connect to, host:port.",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Turn on debug logging.",
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("hookbase")
	}
}
