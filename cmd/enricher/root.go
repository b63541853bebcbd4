package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shpitdev/entity-search-enricher/internal/app"
	"github.com/shpitdev/entity-search-enricher/internal/config"
	"github.com/shpitdev/entity-search-enricher/internal/logging"
)

func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "enricher",
		Short:         "Enrich a list of entities with facts extracted from web search results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file (also ENRICHER_CONFIG)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")
	pf.String("provider", config.ProviderGroq, "language model provider: groq or gemini")
	pf.Duration("request-timeout", 0, "timeout for a single upstream call (default 30s)")
	pf.Float64("rate-limit-rps", 0, "pace upstream calls to this many per second (0 disables)")
	bindFlag(v, config.KeyConfigFile, pf.Lookup("config"))
	bindFlag(v, config.KeyLogLevel, pf.Lookup("log-level"))
	bindFlag(v, config.KeyLogFormat, pf.Lookup("log-format"))
	bindFlag(v, config.KeyLLMProvider, pf.Lookup("provider"))
	bindFlag(v, config.KeyRequestTimeout, pf.Lookup("request-timeout"))
	bindFlag(v, config.KeyRateLimitRPS, pf.Lookup("rate-limit-rps"))

	root.AddCommand(
		newServeCmd(v),
		newRunCmd(v),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, builds the logger and constructs every upstream client.
func setup(ctx context.Context, v *viper.Viper) (config.Config, zerolog.Logger, *app.Services, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	svc, err := app.Build(ctx, cfg, log)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	return cfg, log, svc, nil
}
