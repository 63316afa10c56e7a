package config

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"
)

var q = `
INSERT INTO config VALUES('type','irc');
INSERT INTO config VALUES('nick','{{.Nick}}');
INSERT INTO config VALUES('channels','{{.Channel}}');
INSERT INTO config VALUES('commandchar','.;;!');
INSERT INTO config VALUES('ratepersec',5);
INSERT INTO config VALUES('workers',8);
INSERT INTO config VALUES('httpaddr','127.0.0.1:1337');
INSERT INTO config VALUES('links.maxtitle',100);
INSERT INTO config VALUES('init',1);
`

// SetDefaults seeds an empty configuration for the given channel and nick.
func (c *Config) SetDefaults(mainChannel, nick string) {
	if nick == mainChannel && nick == "" {
		log.Fatal().Msgf("You must provide a nick and a mainChannel")
	}
	t := template.Must(template.New("query").Parse(q))
	vals := struct {
		Nick       string
		Channel    string
		ChannelKey string
	}{
		nick,
		mainChannel,
		strings.ToLower(mainChannel),
	}
	var buf bytes.Buffer
	t.Execute(&buf, vals)
	c.MustExec(`delete from config;`)
	c.MustExec(buf.String())
	log.Info().Msgf("Configuration initialized.")
}
