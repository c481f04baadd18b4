package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"FinPrompt/internal/domain/models"
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/server"
	"FinPrompt/pkg/table"
	"FinPrompt/pkg/util"
)

var (
	tickersFlag string
	fromFlag    string
	toFlag      string
	windowFlag  int
	withNews    bool
	yearFlag    int
	quarterFlag string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast the next close of every window",
	Long: `Slides a window over each ticker's closes and asks the model for the
next close. With --with-news the prompt also carries the window's news
sentiment scores.

Example:
  finprompt forecast --tickers AAPL,MSFT --from 2024-01-01 --to 2024-06-30 --window 30`,
	RunE: runForecast,
}

var guessCmd = &cobra.Command{
	Use:   "guess",
	Short: "Identify the ticker behind each window of closes",
	Long: `Example:
  finprompt guess --tickers AAPL --from 2024-01-01 --to 2024-03-31`,
	RunE: runGuess,
}

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Score the sentiment of every news item",
	Long: `Example:
  finprompt sentiment --tickers TSLA --from 2024-01-01 --to 2024-01-31 --out news_sentiment.csv`,
	RunE: runSentiment,
}

var earningsCmd = &cobra.Command{
	Use:   "earnings",
	Short: "Estimate quarterly revenue and EPS",
	Long: `Builds the prompt from the two previous quarters of statements, the
previous earnings call and the target quarter's news. Without --tickers
every ticker with statements is estimated.

Example:
  finprompt earnings --year 2024 --quarter Q1`,
	RunE: runEarnings,
}

func init() {
	for _, c := range []*cobra.Command{forecastCmd, guessCmd, sentimentCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVar(&tickersFlag, "tickers", "", "comma-separated tickers")
		c.Flags().StringVar(&fromFlag, "from", "", "start date (YYYY-MM-DD)")
		c.Flags().StringVar(&toFlag, "to", "", "end date (YYYY-MM-DD)")
		_ = c.MarkFlagRequired("tickers")
		_ = c.MarkFlagRequired("from")
		_ = c.MarkFlagRequired("to")
	}
	forecastCmd.Flags().IntVar(&windowFlag, "window", 0, "window size (0 uses pipeline.window_size)")
	forecastCmd.Flags().BoolVar(&withNews, "with-news", false, "include news sentiment in the prompt")
	guessCmd.Flags().IntVar(&windowFlag, "window", 0, "window size (0 uses pipeline.window_size)")

	rootCmd.AddCommand(earningsCmd)
	earningsCmd.Flags().StringVar(&tickersFlag, "tickers", "", "comma-separated tickers (default: all with statements)")
	earningsCmd.Flags().IntVar(&yearFlag, "year", 0, "fiscal year")
	earningsCmd.Flags().StringVar(&quarterFlag, "quarter", "", "fiscal quarter (Q1..Q4)")
	_ = earningsCmd.MarkFlagRequired("year")
	_ = earningsCmd.MarkFlagRequired("quarter")
}

func dateRangeFlags() (usecase.DateRange, error) {
	start, err := parseDay("from", fromFlag)
	if err != nil {
		return usecase.DateRange{}, err
	}
	end, err := parseDay("to", toFlag)
	if err != nil {
		return usecase.DateRange{}, err
	}
	return usecase.DateRange{Start: start, End: end}, nil
}

func runForecast(cmd *cobra.Command, _ []string) error {
	r, err := dateRangeFlags()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
		out, err := app.Pipeline.Forecast.ForecastTickers(ctx, usecase.ForecastTickersParams{
			Tickers: util.SplitList(tickersFlag), Range: r, WindowSize: windowFlag, WithNews: withNews,
		})
		if err != nil {
			return err
		}
		return emit(ctx, app, usecase.JobForecast, out, func(p models.Prediction[decimal.Decimal]) string { return p.Ticker })
	})
}

func runGuess(cmd *cobra.Command, _ []string) error {
	r, err := dateRangeFlags()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
		out, err := app.Pipeline.Ticker.EstimateTickers(ctx, usecase.EstimateTickersParams{
			Tickers: util.SplitList(tickersFlag), Range: r, WindowSize: windowFlag,
		})
		if err != nil {
			return err
		}
		return emit(ctx, app, usecase.JobEstimate, out, func(p models.Prediction[string]) string { return p.Ticker })
	})
}

func runSentiment(cmd *cobra.Command, _ []string) error {
	r, err := dateRangeFlags()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
		out, err := app.Pipeline.Sentiment.AnalyzeTickersSentiments(ctx, usecase.SentimentTickersParams{
			Tickers: util.SplitList(tickersFlag), Range: r,
		})
		if err != nil {
			return err
		}
		return emit(ctx, app, usecase.JobSentiment, out, func(s models.SentimentRecord) string { return s.Ticker })
	})
}

func runEarnings(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
		tickers := util.SplitList(tickersFlag)
		if len(tickers) == 0 {
			tickers = app.Pipeline.Earnings.StatementTickers()
		}
		out, err := app.Pipeline.Earnings.EstimateEarningsTickers(ctx, usecase.EarningsTickersParams{
			Tickers: tickers, Year: yearFlag, Quarter: quarterFlag,
		})
		if err != nil {
			return err
		}
		return emit(ctx, app, usecase.JobEarnings, out, func(e models.EarningsEstimate) string { return e.Ticker })
	})
}

func withApp(ctx context.Context, fn func(context.Context, *server.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, closeApp, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeApp()
	return fn(ctx, app)
}

// emit writes rows as CSV and publishes them as results of kind.
func emit[R table.Exportable](ctx context.Context, app *server.App, kind string, rows []R, ticker func(R) string) error {
	if err := table.ExportCSV(outPath, rows); err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}
	if err := app.Pipeline.Publisher.PublishResults(ctx, kind, usecase.ResultRows(rows, ticker)); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	app.Logger().Info("results written",
		logger.String("kind", kind),
		logger.Int("rows", len(rows)),
		logger.String("out", outPath),
	)
	return nil
}
