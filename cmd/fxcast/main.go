// Command fxcast runs one-shot forecast operations or the HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"FxCast/internal/di"
	"FxCast/internal/usecase"
	"FxCast/pkg/config"
	"FxCast/pkg/util"

	"github.com/spf13/cobra"
)

var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "fxcast",
	Short:         "Currency and stock price forecasts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = config.LoadWithEnv(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if demo, _ := cmd.Flags().GetBool("demo"); demo {
			cfg.Backend.DemoMode = true
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("demo", false, "use the local demo generator")

	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
}

// withSession builds the app, bootstraps the session and hands it to fn.
func withSession(fn func(ctx context.Context, s *usecase.Session) error) error {
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s := app.Session()
	if err := s.Bootstrap(ctx); err != nil {
		return err
	}
	return fn(ctx, s)
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols [filter]",
	Short: "List catalog tickers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ""
		if len(args) == 1 {
			term = args[0]
		}
		return withSession(func(_ context.Context, s *usecase.Session) error {
			for _, sym := range s.Symbols(term) {
				fmt.Printf("%-12s %s\n", sym.Value, sym.Label)
			}
			return nil
		})
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast [ticker]",
	Short: "Build a forecast and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		out, _ := cmd.Flags().GetString("csv")
		return withSession(func(ctx context.Context, s *usecase.Session) error {
			res, err := s.Forecast(ctx, args[0], days)
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			for _, p := range res.Forecast {
				fmt.Printf("%s  %.4f\n", util.FormatDate(p.Date), p.Value)
			}
			if sum := snap.Summary; sum != nil {
				fmt.Printf("\ncurrent:     %.4f\n", sum.CurrentPrice)
				fmt.Printf("forecast:    %.4f (%+.2f%%)\n", sum.ForecastPrice, sum.ChangePct)
				fmt.Printf("avg daily:   %+.4f%%\n", sum.AvgDailyChangePct)
				fmt.Printf("volatility:  %.4f%%\n", sum.Volatility)
			}
			if det := snap.Details; det != nil {
				fmt.Printf("type:        %s\n", det.KindLabel)
				fmt.Printf("range:       %.4f .. %.4f\n", det.Min, det.Max)
			}
			if out == "" {
				return nil
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			name, err := s.Export(f)
			if err != nil {
				return err
			}
			fmt.Printf("exported %s as %s\n", name, out)
			return nil
		})
	},
}

func init() {
	forecastCmd.Flags().Int("days", 14, "forecast horizon in days")
	forecastCmd.Flags().String("csv", "", "write history and forecast to this CSV file")
}

var historyCmd = &cobra.Command{
	Use:   "history [ticker]",
	Short: "Print historical prices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		to := util.TruncateDay(time.Now())
		if end != "" {
			t, err := util.ParseDate(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			to = t
		}
		from := util.AddDays(to, -(cfg.Forecast.HistoryDays - 1))
		if start != "" {
			t, err := util.ParseDate(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			from = t
		}
		return withSession(func(ctx context.Context, s *usecase.Session) error {
			points, err := s.History(ctx, args[0], from, to)
			if err != nil {
				return err
			}
			for _, p := range points {
				fmt.Printf("%s  %.4f\n", util.FormatDate(p.Date), p.Value)
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().String("start", "", "start date YYYY-MM-DD")
	historyCmd.Flags().String("end", "", "end date YYYY-MM-DD (default today)")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the forecast backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, s *usecase.Session) error {
			st := s.CheckHealth(ctx)
			fmt.Printf("connection:   %s\n", st.Connection)
			fmt.Printf("model_status: %s\n", st.ModelStatus)
			if st.Error != "" {
				fmt.Printf("error:        %s\n", st.Error)
			}
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		app, cleanup, err := di.InitializeApp(cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return app.Run()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "override server.port")
}
