package commands

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the analysis operations over HTTP.

Endpoints:
  GET  /api/forecast              POST /api/forecast/batch
  GET  /api/ticker-guess          POST /api/ticker-guess/batch
  GET  /api/sentiment             POST /api/sentiment/batch
  GET  /api/earnings              POST /api/earnings/batch
  GET  /api/stats
  GET  /api/universe/price        GET  /api/universe/news
  POST /api/jobs                  (when a job backend is configured)
  GET  /healthz                   GET  /metrics`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, closeApp, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeApp()
		return app.Serve(cmd.Context())
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued pipeline jobs",
	Long: `Reads jobs from kafka.jobs_topic (or the Redis list under queue.key_prefix when
queue.backend is redis), runs them and publishes the results to kafka.topic.
Jobs that keep failing are dead-lettered.

Job message:
  {"id": "...", "kind": "forecast|estimate|sentiment|earnings", "tickers": ["AAPL"],
   "start": "2024-01-01", "end": "2024-06-30", "window_size": 30, "with_news": false,
   "year": 2024, "quarter": "Q1"}`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, closeApp, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeApp()
		return app.Work(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
}
