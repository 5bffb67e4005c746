package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("failed to run")
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "reportparse",
		Usage: "Parse surgical risk assessments offline",
		Commands: []*cli.Command{
			parseCommand(),
			sectionCommand(),
			evaluateCommand(),
		},
	}
}
