package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	odata "github.com/nlstn/go-odata-client"
	"github.com/nlstn/go-odata-client/internal/config"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	envFile    string
	headers    []string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "odata-client",
		Short: "Build OData V4 request URLs and run $batch requests",
		Long: `odata-client builds OData V4 request URLs from query options and encodes,
decodes and sends multipart $batch requests.

Settings are read from flags, ODATA_* environment variables, an optional
config file and a .env file in the working directory.

Examples:
  odata-client url Products --filter "Price gt 100 and contains(Name,'Pro')" --top 10
  odata-client url Orders --key CustomerId=ALFKI --key OrderId=5 --expand Items
  odata-client batch encode changes.yaml
  odata-client batch send changes.yaml --service https://host/odata/`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a config file (yaml, json or toml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to a dotenv file; missing files are ignored")
	flags.String("service", "", "Service root URL (overrides ODATA_SERVICE_URL)")
	flags.BoolP("verbose", "v", false, "Enable debug logging to stderr")
	flags.Bool("bare-guids", false, "Render Edm.Guid literals without the guid'' prefix")
	flags.StringArrayVarP(&a.headers, "header", "H", nil, "Extra request header as 'Name: value' (repeatable)")

	_ = a.v.BindPFlag("service_url", flags.Lookup("service"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("bare_guids", flags.Lookup("bare-guids"))

	root.AddCommand(newURLCmd(a), newBatchCmd(a))
	return root
}

// load resolves the configuration once flags are parsed.
func (a *app) load(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	for _, h := range a.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) literalFormatter() odata.LiteralFormatter {
	return odata.LiteralFormatter{BareGUIDs: a.cfg.BareGUIDs}
}

func (a *app) batchOptions() []odata.BatchOption {
	var opts []odata.BatchOption
	if a.cfg.ContinueOnError {
		opts = append(opts, odata.WithContinueOnError(), odata.WithPerOperationErrors())
	}
	if a.cfg.ContentBoundaries {
		opts = append(opts, odata.WithContentBoundaries())
	}
	return opts
}

// client builds a client for commands that talk to the service.
func (a *app) client() (*odata.Client, error) {
	if err := a.cfg.RequireServiceURL(); err != nil {
		return nil, err
	}
	retry := odata.DefaultRetryConfig()
	retry.MaxRetries = a.cfg.Retry.MaxRetries
	retry.InitialBackoff = a.cfg.Retry.InitialBackoff
	retry.MaxBackoff = a.cfg.Retry.MaxBackoff
	retry.BackoffMultiplier = a.cfg.Retry.BackoffMultiplier
	retry.JitterFraction = a.cfg.Retry.JitterFraction
	retry.RetryWrites = a.cfg.Retry.Writes

	return odata.NewClientWithConfig(a.cfg.ServiceURL, odata.ClientConfig{
		HTTPClient:       &http.Client{Timeout: a.cfg.Timeout},
		Retry:            retry,
		Headers:          a.cfg.Headers,
		LiteralFormatter: a.literalFormatter(),
		BatchOptions:     a.batchOptions(),
		Logger:           a.logger,
	})
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
