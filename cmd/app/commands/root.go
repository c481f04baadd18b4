package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"FinPrompt/internal/di"
	"FinPrompt/pkg/config"
	"FinPrompt/pkg/server"
	"FinPrompt/pkg/util"
)

var (
	// Global flags
	configFile string
	outPath    string
)

var rootCmd = &cobra.Command{
	Use:   "finprompt",
	Short: "LLM-driven analysis of price, news and earnings history",
	Long: `FinPrompt runs windowed price forecasts, ticker identification, news
sentiment and earnings estimates against a chat-completion backend.

Results are written as CSV (--out, "-" for stdout) and, when Kafka is
enabled, published to the results topic.

Examples:
  finprompt forecast --tickers AAPL,MSFT --from 2024-01-01 --to 2024-06-30
  finprompt earnings --year 2024 --quarter Q1 --out earnings.csv
  finprompt serve`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&outPath, "out", "-", `CSV output path ("-" for stdout)`)
}

// bootstrap loads the configuration and wires the application. The returned
// function closes the app and its infrastructure clients.
func bootstrap() (*server.App, func(), error) {
	cfg, err := config.LoadWithEnv(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize app: %w", err)
	}
	return app, func() {
		_ = app.Close()
		cleanup()
	}, nil
}

func parseDay(flag, value string) (time.Time, error) {
	t, ok := util.ParseDate(value)
	if !ok {
		return time.Time{}, fmt.Errorf("--%s: invalid date %q (want YYYY-MM-DD)", flag, value)
	}
	return t, nil
}

func parseOptionalDay(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDay(flag, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
