package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/anime-shed/snaptune-go/internal/logger"
)

func main() {
	if err := loadDotEnv(); err != nil {
		logger.WithError(err).Warn("Failed to read .env file")
	}

	runner := NewRunner(RunnerOpts{Output: os.Stdout})

	app := &cli.Command{
		Name:     "snaptune",
		Usage:    "Recommend a song for a photo",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.WithError(err).Fatal("snaptune failed")
	}
}

// loadDotEnv reads .env files into the environment; a missing file is not an error
func loadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
