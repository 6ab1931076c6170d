package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/anime-shed/snaptune-go/internal/config"
	"github.com/anime-shed/snaptune-go/internal/container"
	"github.com/anime-shed/snaptune-go/internal/logger"
	"github.com/anime-shed/snaptune-go/pkg/models"
)

const maskedSecret = "********"

// Runner holds the dependencies shared by CLI commands
type Runner struct {
	output io.Writer
	load   func(path string) (*config.Config, error)
}

// RunnerOpts configures a Runner
type RunnerOpts struct {
	Output io.Writer

	// LoadConfig reads the configuration; empty path means environment only
	LoadConfig func(path string) (*config.Config, error)
}

// NewRunner creates a Runner with defaults for anything left unset
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = loadConfig
	}
	return &Runner{output: opts.Output, load: opts.LoadConfig}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.LoadFile(path)
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{analyzeCommand(r), configCommand(r)}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a TOML configuration file; environment variables override it",
	}
}

func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Recommend a song (and a caption for posts) for a photo",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "photo"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "post-type",
				Aliases: []string{"t", "mode"},
				Usage:   "post or story",
				Value:   string(models.ModePost),
			},
			&cli.StringFlag{
				Name:  "regenerate",
				Usage: "song or caption",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Analyze,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Print the effective configuration with secrets masked",
		Flags:  []cli.Flag{configFlag()},
		Action: r.PrintConfig,
	}
}

// Analyze runs the recommendation pipeline once for a local photo
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("photo")
	if path == "" {
		return fmt.Errorf("a photo path is required")
	}

	mode, err := models.ParsePostMode(cmd.String("post-type"))
	if err != nil {
		return err
	}
	regenerate, err := models.ParseRegenerateTarget(cmd.String("regenerate"))
	if err != nil {
		return err
	}

	cfg, err := r.load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	resp, err := c.Service().Recommend(ctx, models.AnalysisRequest{
		Image:      image,
		Mode:       mode,
		Regenerate: regenerate,
	})
	if err != nil {
		return err
	}

	return r.writeJSON(resp, cmd.Bool("pretty"))
}

// PrintConfig writes the effective configuration as TOML
func (r *Runner) PrintConfig(ctx context.Context, cmd *cli.Command) error {
	cfg, err := r.load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	masked := *cfg
	masked.Analysis.APIKey = mask(cfg.Analysis.APIKey)
	masked.Catalog.ClientSecret = mask(cfg.Catalog.ClientSecret)
	masked.CustomAudio.AzureKey = mask(cfg.CustomAudio.AzureKey)

	if err := toml.NewEncoder(r.output).Encode(masked); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func mask(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return ""
	}
	return maskedSecret
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
