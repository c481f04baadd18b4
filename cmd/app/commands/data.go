package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/server"
	"FinPrompt/pkg/table"
	"FinPrompt/pkg/util"
)

var (
	minCountFlag int
	sourceFlag   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Price statistics per ticker",
	Long: `Reports min/max close, the largest single-day drop and gain, and the
volatility of each ticker over the range. Tickers without data are skipped.

Example:
  finprompt stats --tickers AAPL,PYPL --from 2024-01-01 --to 2024-12-31`,
	RunE: runStats,
}

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "List tickers with enough price or news rows",
	Long: `Example:
  finprompt universe --source news --from 2024-01-01 --min-count 50`,
	RunE: runUniverse,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&tickersFlag, "tickers", "", "comma-separated tickers")
	statsCmd.Flags().StringVar(&fromFlag, "from", "", "start date (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&toFlag, "to", "", "end date (YYYY-MM-DD)")
	_ = statsCmd.MarkFlagRequired("tickers")
	_ = statsCmd.MarkFlagRequired("from")
	_ = statsCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(universeCmd)
	universeCmd.Flags().StringVar(&sourceFlag, "source", "price", "row source (price|news)")
	universeCmd.Flags().StringVar(&fromFlag, "from", "", "start date (YYYY-MM-DD, default: open)")
	universeCmd.Flags().StringVar(&toFlag, "to", "", "end date (YYYY-MM-DD, default: open)")
	universeCmd.Flags().IntVar(&minCountFlag, "min-count", -1, "minimum rows per ticker (-1 uses pipeline.min_count)")
}

func runStats(cmd *cobra.Command, _ []string) error {
	r, err := dateRangeFlags()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
		var out []models.TickerStatistics
		for _, ticker := range util.NormalizeTickers(util.SplitList(tickersFlag)) {
			s, err := app.Pipeline.Data.Statistics(usecase.StatisticsParams{Ticker: ticker, Range: r})
			if err != nil {
				if apperr.KindOf(err) == apperr.KindDataNotFound {
					app.Logger().Warn("no price data", logger.String("ticker", ticker), logger.Error(err))
					continue
				}
				return err
			}
			out = append(out, s)
		}
		return table.ExportCSV(outPath, out)
	})
}

func runUniverse(cmd *cobra.Command, _ []string) error {
	start, err := parseOptionalDay("from", fromFlag)
	if err != nil {
		return err
	}
	end, err := parseOptionalDay("to", toFlag)
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
		minCount := minCountFlag
		if minCount < 0 {
			minCount = app.MinCount()
		}
		p := usecase.UniverseParams{Start: start, End: end, MinCount: minCount}

		var (
			out []models.UniverseEntry
			err error
		)
		switch sourceFlag {
		case "price":
			out, err = app.Pipeline.Data.PriceUniverse(p)
		case "news":
			out, err = app.Pipeline.Data.NewsUniverse(p)
		default:
			return fmt.Errorf("--source: want price or news, got %q", sourceFlag)
		}
		if err != nil {
			return err
		}
		return table.ExportCSV(outPath, out)
	})
}
