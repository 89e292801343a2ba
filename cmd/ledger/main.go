package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"billing-ledger/internal/config"
	"billing-ledger/internal/domain"
	"billing-ledger/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cliApp := &cli.App{
		Name:  "ledger",
		Usage: "billing ledger for a single shop",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the reconciliation worker",
				Action: serve,
			},
			{
				Name:  "report",
				Usage: "print a report as JSON",
				Subcommands: []*cli.Command{
					{
						Name:  "daily",
						Usage: "sales for one day",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "date", Usage: "day as YYYY-MM-DD, defaults to today"},
						},
						Action: reportDaily,
					},
					{
						Name:  "trend",
						Usage: "daily sales for the last N days",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "days", Value: 7},
						},
						Action: reportTrend,
					},
					{
						Name:   "debts",
						Usage:  "outstanding orders by customer",
						Action: reportDebts,
					},
					{
						Name:   "dashboard",
						Usage:  "today at a glance",
						Action: reportDashboard,
					},
				},
			},
			{
				Name:      "receipt",
				Usage:     "print the receipt of an order",
				ArgsUsage: "<order-id>",
				Action:    printReceipt,
			},
			{
				Name:   "reconcile",
				Usage:  "record customer spend for stuck orders once and exit",
				Action: reconcile,
			},
			{
				Name:  "reset",
				Usage: "delete every customer, order and setting",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "confirm"},
				},
				Action: reset,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.WithError(err).Fatal("ledger failed")
	}
}

// withApp loads configuration and opens the ledger for the duration of fn.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func serve(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		server := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           transport.NewRouter(a.handler(), a.cfg.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.WithField("addr", server.Addr).Info("http server started")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "http server")
			}
			return nil
		})
		g.Go(func() error {
			a.reconciler().Run(ctx)
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			log.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func reportDaily(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		ref := time.Now()
		if date := c.String("date"); date != "" {
			parsed, err := time.ParseInLocation(domain.DateLayout, date, a.cfg.Location())
			if err != nil {
				return errors.Wrap(err, "--date")
			}
			ref = parsed
		}
		return printJSON(a.orders.DailySales(ctx, ref))
	})
}

func reportTrend(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		return printJSON(a.orders.SalesTrend(ctx, time.Now(), c.Int("days")))
	})
}

func reportDebts(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		return printJSON(a.ledger.DebtSummary(ctx))
	})
}

func reportDashboard(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		return printJSON(a.ledger.Dashboard(ctx, time.Now()))
	})
}

func printReceipt(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.ShowSubcommandHelp(c)
	}
	return withApp(c, func(ctx context.Context, a *app) error {
		text, err := a.ledger.Receipt(ctx, c.Args().First())
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	})
}

func reconcile(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app) error {
		fixed, err := a.reconciler().Process(ctx)
		if err != nil {
			return err
		}
		log.WithField("fixed", fixed).Info("reconciliation done")
		return nil
	})
}

func reset(c *cli.Context) error {
	if !c.Bool("yes") {
		return errors.New("reset deletes all data; pass --yes to confirm")
	}
	return withApp(c, func(ctx context.Context, a *app) error {
		return a.ledger.Reset(ctx)
	})
}
