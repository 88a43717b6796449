package main

import (
	"os"

	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := buildRootCmd(log).Execute(); err != nil {
		log.Error().Err(err).Msg("enginectl failed")
		os.Exit(1)
	}
}
