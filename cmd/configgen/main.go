package main

import (
	"flag"
	"fmt"

	"github.com/danmuck/lurk/internal/config"
	"github.com/danmuck/lurk/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultPath = "lurk.toml"

func main() {
	logging.ConfigureRuntime("configgen")

	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	printOnly := flag.Bool("print", false, "print the template to stdout instead of writing it")
	flag.Parse()

	if *printOnly {
		fmt.Print(config.Template())
		return
	}

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("invalid config")
		}
		log.Info().
			Str("path", *input).
			Bool("command_extension", cfg.CommandExtension).
			Int("max_message_bytes", cfg.MaxMessageBytes).
			Msg("validated config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("write config template")
	}
	log.Info().Str("path", *output).Msg("wrote config template")
}
