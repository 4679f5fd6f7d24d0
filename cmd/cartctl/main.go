// cartctl is a terminal storefront that hosts the cart widgets. Anonymous
// shoppers use the guest cart in local storage; signed in shoppers use the
// cart backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

const defaultListenAddr = ":8081"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	user        string
	token       string
	storage     string
	backend     string
	metricsAddr string
	listen      string
	help        bool
}

func newFlagSet(opts *options, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("cartctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.user, "user", "", "sign in as this user id")
	flagSet.StringVar(&opts.token, "token", "", "sign in with this access token")
	flagSet.StringVar(&opts.storage, "storage", "", "guest cart storage driver: memory, sqlite or redis")
	flagSet.StringVar(&opts.backend, "backend", "", "cart backend base url")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flagSet.StringVar(&opts.listen, "listen", defaultListenAddr, "listen address for dev-backend")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")
	return flagSet
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var opts options
	flagSet := newFlagSet(&opts, stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			opts.help = true
			return opts, nil, nil
		}
		return opts, nil, err
	}
	return opts, flagSet.Args(), nil
}

// apply lets flags override the environment.
func (o options) apply(cfg *config.Config) {
	if v := strings.TrimSpace(o.storage); v != "" {
		cfg.Storage.Driver = v
	}
	if v := strings.TrimSpace(o.backend); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(o.metricsAddr); v != "" {
		cfg.Metrics.Addr = v
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(stderr)
		return nil
	}
	if len(rest) == 0 {
		printHelp(stderr)
		return fmt.Errorf("a command is required")
	}

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts.apply(cfg)

	logg := logger.New(logger.Options{
		ServiceName: "cartctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      stderr,
	})
	if envErr != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)

	if cfg.Metrics.Addr != "" {
		stopMetrics := startMetricsServer(ctx, cfg.Metrics.Addr, registry, logg)
		defer func() {
			err = multierr.Append(err, stopMetrics())
		}()
	}

	if rest[0] == "dev-backend" {
		return runDevBackend(ctx, cfg, opts.listen, logg, registry)
	}

	a, err := newApp(ctx, cfg, opts, logg, cartMetrics)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	if rest[0] == "shell" {
		return runShell(ctx, a, stdin, stdout)
	}
	return a.dispatch(ctx, rest, stdout)
}

func printHelp(w io.Writer) {
	var opts options
	flagSet := newFlagSet(&opts, w)
	fmt.Fprintf(w, `cartctl manages a storefront cart from the terminal.

Without --user or --token the guest cart in local storage is used. A signed
in shopper's cart lives on the cart backend.

Usage:
  cartctl [flags] <command> [args]

Commands:
  get                                         show the cart
  add <productId> <name> <price> <stock> [qty]  add a product
  update <lineId> <qty>                       set a line's quantity
  remove <lineId>                             remove a line
  clear                                       empty the cart
  logout                                      discard the guest cart
  shell                                       interactive storefront
  dev-backend                                 serve an in-memory cart backend

Flags:
%s`, flagSet.FlagUsages())
}
