package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"sportscentre/internal/components/telemetry"
	"sportscentre/internal/portal"
	"sportscentre/pkg/configutil"
	"sportscentre/pkg/restyutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

type Config struct {
	Username              string               `json:"username"`
	Password              string               `json:"password"`
	BaseUrl               string               `json:"base_url"`
	RequestTimeoutSeconds int                  `json:"request_timeout_seconds"`
	Otlp                  telemetry.OtlpConfig `json:"otlp"`
}

var (
	verbose    *bool
	configPath *string
	recordDir  *string

	client *portal.Client
	otlp   telemetry.Otlp
)

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every request made to the portal.")
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file holding the account's credentials.")
	recordDir = rootCmd.PersistentFlags().String("record", "", "Write every request and response to files in this directory.")
}

var rootCmd = &cobra.Command{
	Use:   "sportscentre-cli",
	Short: "sportscentre-cli lists, books and pays for Lancaster University Sports Centre slots.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initSlog(*verbose)

		cfg, err := configutil.ReadConfig[Config](*configPath)
		if err != nil {
			fatal("failed to read config", err)
		}
		cfg.Password = configutil.Getenv("SPORTSCENTRE_PASSWORD", cfg.Password)
		if cfg.Username == "" || cfg.Password == "" {
			fatal("invalid config", fmt.Errorf("%s must set username and password (or SPORTSCENTRE_PASSWORD)", *configPath))
		}

		otlp, err = telemetry.SetupOtlp(cmd.Context(), "sportscentre-cli", cfg.Otlp)
		if err != nil {
			fatal("failed to setup otlp", err)
		}
		tel, err := telemetry.NewMeterAPI(
			telemetry.NewSlogAPI(slog.Default()),
			otel.Meter("sportscentre-cli"),
		)
		if err != nil {
			fatal("failed to create meter", err)
		}

		var exchanges restyutil.Output
		if *recordDir != "" {
			out, err := restyutil.NewFilesystemOutput(*recordDir)
			if err != nil {
				fatal("failed to create record directory", err)
			}
			exchanges = out
		}

		client, err = portal.NewClient(portal.ClientOptions{
			Username: cfg.Username,
			Password: cfg.Password,
			SessionOptions: portal.SessionOptions{
				BaseUrl:        cfg.BaseUrl,
				RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
				Exchanges:      exchanges,
			},
			Telemetry: tel,
		})
		if err != nil {
			fatal("failed to create client", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otlp.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
