package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/heyimalex/mpstream"
	"github.com/heyimalex/mpstream/internal/config"
	"github.com/heyimalex/mpstream/internal/logs"
	"github.com/heyimalex/mpstream/internal/source"
)

var version = "dev"

type app struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	client *http.Client

	configFile string
	fields     []fieldArg
	headers    []string
	method     string
	boundary   string
	dump       bool

	sourceOpts []source.Option
}

func newRootCommand(a *app) *cobra.Command {
	if a.v == nil {
		a.v = viper.New()
	}
	config.SetDefaults(a.v)

	cmd := &cobra.Command{
		Use:   "mpstream [flags] [URL]",
		Short: "Stream a multipart/form-data body to a URL or stdout",
		Long: `mpstream assembles a multipart/form-data body from form fields and streams
it without buffering file contents. With a URL the body is sent as the
request body; without one (or with --dump) it is written to stdout.

Stream fields take a local path, "-" for stdin, s3://bucket/key or
oss://bucket/key.`,
		Example: `  mpstream -F title=holiday -F photo=@beach.jpg https://example.com/upload
  mpstream -F 'report=@s3://bucket/q3.csv;type=text/csv' --dump > body.bin
  cat log.txt | mpstream -F 'log=@-;filename=log.txt' -X PUT https://example.com/logs`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			return a.run(cmd.Context(), url)
		},
	}

	flags := cmd.Flags()
	flags.VarP(fieldFlag{args: &a.fields}, "form", "F", "form field, name=value or name=@file[;type=mime][;filename=name] (repeatable)")
	flags.Var(fieldFlag{args: &a.fields, isJSON: true}, "json", "JSON text field, name=<json> (repeatable)")
	flags.StringArrayVarP(&a.headers, "header", "H", nil, "extra request header, \"Key: Value\" (repeatable)")
	flags.StringVarP(&a.method, "request", "X", http.MethodPost, "HTTP method")
	flags.StringVar(&a.boundary, "boundary", "", "use this boundary instead of a random one")
	flags.BoolVar(&a.dump, "dump", false, "write the body to stdout even when a URL is given")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&a.configFile, "config", "c", "", "config file (default ./mpstream.yaml or ~/.config/mpstream/mpstream.yaml)")
	persistent.String("log-level", "warn", "log level")
	persistent.Duration("timeout", 0, "HTTP request timeout, 0 for none")
	persistent.Bool("reverse-streams", false, "emit stream fields last-added first")
	persistent.Bool("escape-quotes", false, "escape quotes in field names and filenames")
	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"http.timeout":    "timeout",
		"reverse_streams": "reverse-streams",
		"escape_quotes":   "escape-quotes",
	} {
		if err := a.v.BindPFlag(key, persistent.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("mpstream: bind --%s to %s: %v", flag, key, err))
		}
	}

	cmd.AddCommand(newConfigCommand(a))
	cmd.AddCommand(newVersionCommand(a))
	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "mpstream %s\n", version)
		},
	}
}

func (a *app) run(ctx context.Context, url string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	logger := logs.New(cfg.Log, a.stderr)

	opts := []mpstream.Option{mpstream.WithLogger(logger)}
	if cfg.ReverseStreams {
		opts = append(opts, mpstream.WithReversedStreams())
	}
	if cfg.EscapeQuotes {
		opts = append(opts, mpstream.WithQuoteEscaping())
	}
	fs := mpstream.NewFieldSet(opts...)

	res := source.NewResolver(source.Config{
		S3Region:           cfg.S3.Region,
		OSSEndpoint:        cfg.OSS.Endpoint,
		OSSRegion:          cfg.OSS.Region,
		OSSAccessKeyID:     cfg.OSS.AccessKeyID,
		OSSAccessKeySecret: cfg.OSS.AccessKeySecret,
	}, logger, append([]source.Option{source.WithStdin(a.stdin)}, a.sourceOpts...)...)

	if err := addSpecs(ctx, fs, res, a.fields); err != nil {
		return err
	}

	var body *mpstream.Body
	if a.boundary != "" {
		body, err = fs.PrepareWithBoundary(a.boundary)
		if err != nil {
			fs.Prepare().Close()
			return err
		}
	} else {
		body = fs.Prepare()
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing payloads")
		}
	}()

	if url == "" || a.dump {
		fmt.Fprintf(a.stderr, "Content-Type: %s\n", body.ContentType())
		n, err := io.Copy(a.stdout, body)
		logger.Info().Int64("bytes", n).Msg("wrote body")
		return err
	}
	return a.send(ctx, url, body, cfg)
}

func (a *app) send(ctx context.Context, url string, body *mpstream.Body, cfg *config.Config) error {
	if cfg.HTTP.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.Timeout)
		defer cancel()
	}

	req, err := mpstream.NewRequest(ctx, strings.ToUpper(a.method), url, body)
	if err != nil {
		return err
	}
	for _, h := range append(cfg.HTTP.Headers, a.headers...) {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q: want \"Key: Value\"", h)
		}
		req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}

	client := a.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(a.stderr, resp.Status)
	if _, err := io.Copy(a.stdout, resp.Body); err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server responded %s", resp.Status)
	}
	return nil
}
