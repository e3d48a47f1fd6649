package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sourcegraph/conc"

	"github.com/yourneighborhoodchef/pokerestock/internal/client"
	"github.com/yourneighborhoodchef/pokerestock/internal/config"
	"github.com/yourneighborhoodchef/pokerestock/internal/headers"
	"github.com/yourneighborhoodchef/pokerestock/internal/logging"
	"github.com/yourneighborhoodchef/pokerestock/internal/monitor"
	"github.com/yourneighborhoodchef/pokerestock/internal/notify"
	"github.com/yourneighborhoodchef/pokerestock/internal/ratelimit"
	"github.com/yourneighborhoodchef/pokerestock/internal/retailer"
	"github.com/yourneighborhoodchef/pokerestock/internal/state"
	"github.com/yourneighborhoodchef/pokerestock/internal/status"
	"github.com/yourneighborhoodchef/pokerestock/internal/telemetry"
)

const banner = "═══════════════════════════════════════════════════════════"

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "run a single check cycle and exit")
	envFile := flag.String("env-file", ".env", "dotenv file loaded when present")
	flag.Parse()

	if err := loadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log := logging.StartLogger(cfg.LogFormat == config.LogJSON)
	defer log.Close()

	headers.InitProfilePool(500)
	rotator, err := client.NewRotator(cfg.CheckTimeout, cfg.Proxies)
	if err != nil {
		log.Printf("ERROR: create HTTP client: %v", err)
		return 1
	}
	registry := retailer.DefaultRegistry(rotator)

	printBanner(log, cfg, registry)
	for _, w := range cfg.Warnings {
		log.Printf("WARN: %s", w)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("ERROR: %v", err)
		return 1
	}
	if len(cfg.Proxies) > 0 {
		log.Printf("Using %d proxy(ies)", len(cfg.Proxies))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	webhookClient, err := client.CreateClient(cfg.NotifyTimeout, "")
	if err != nil {
		log.Printf("ERROR: create webhook client: %v", err)
		return 1
	}
	notifier := &notify.Multi{
		Primary:     notify.NewDiscord(cfg.Webhook, webhookClient),
		SinkTimeout: cfg.NotifyTimeout,
		Logf:        log.Printf,
	}
	defer notifier.Close()

	var journal *notify.Journal
	if cfg.AlertJournal != "" {
		if journal, err = notify.OpenJournal(cfg.AlertJournal); err != nil {
			log.Printf("ERROR: %v", err)
			return 1
		}
		notifier.Sinks = append(notifier.Sinks, journal)
		log.Printf("Alert journal: %s", cfg.AlertJournal)
	}
	if cfg.AMQPURL != "" {
		pub, err := notify.DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPExchange, log.Printf)
		if err != nil {
			log.Printf("ERROR: %v", err)
			return 1
		}
		notifier.Sinks = append(notifier.Sinks, pub)
		log.Printf("Publishing alerts to exchange %q", cfg.AMQPExchange)
	}
	if cfg.RedisAddr != "" {
		pub, err := notify.DialRedis(ctx, cfg.RedisAddr, cfg.RedisChannel, log.Printf)
		if err != nil {
			log.Printf("ERROR: %v", err)
			return 1
		}
		notifier.Sinks = append(notifier.Sinks, pub)
		log.Printf("Publishing alerts to Redis channel %q", cfg.RedisChannel)
	}

	tcfg := telemetry.ConfigFromEnv(os.Getenv)
	tp, err := telemetry.NewProvider(ctx, tcfg)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return 1
	}
	if tp.Enabled() {
		log.Printf("Exporting metrics to %s every %s", tcfg.OTLPEndpoint, tcfg.MetricInterval)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("WARN: %v", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(tp.Meter(telemetry.MeterName()))
	if err != nil {
		log.Printf("ERROR: create metrics: %v", err)
		return 1
	}

	limiters := ratelimit.New(cfg.RetailerRPS, cfg.RetailerBurst)
	if limiters.Enabled() {
		rps, burst := limiters.Stats()
		log.Printf("Rate limit: %g req/s per retailer, burst %d", rps, burst)
	}

	store := state.New()
	sched := monitor.New(cfg.Products, registry, store, notifier, monitor.Options{
		Interval:       cfg.Interval,
		CheckTimeout:   cfg.CheckTimeout,
		NotifyTimeout:  cfg.NotifyTimeout,
		MaxConcurrency: cfg.MaxConcurrency,
		Limiters:       limiters,
		Metrics:        metrics,
		Logger:         log,
	})

	if *once {
		r := sched.RunCycle(ctx)
		log.Printf("Single cycle finished: %d tasks, %d readings, %d failures, %d restocks, %d alerts in %s",
			r.Tasks, r.Readings, r.Failures, r.Restocks, r.Alerts, r.Duration.Round(time.Millisecond))
		return 0
	}

	var wg conc.WaitGroup
	defer wg.Wait()
	if cfg.StatusAddr != "" {
		var alerts status.AlertSource
		if journal != nil {
			alerts = journal
		}
		srv := status.NewServer(cfg.StatusAddr, status.NewRouter(status.NewHandler(sched, store, alerts)))
		wg.Go(func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("ERROR: status server: %v", err)
			}
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Printf("Status endpoint listening on %s", cfg.StatusAddr)
	}

	log.Printf("Monitor running! Press Ctrl+C to stop.")
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("ERROR: %v", err)
		return 1
	}
	log.Printf("Shutting down")
	return 0
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func printBanner(log *logging.Logger, cfg config.Config, registry *retailer.Registry) {
	webhook := "NOT SET ✗"
	if cfg.Webhook != "" {
		webhook = "Configured ✓"
	}
	log.Printf(banner)
	log.Printf("  PokeRestock Monitor Started!")
	log.Printf(banner)
	log.Printf("  Monitoring %d products", len(cfg.Products))
	log.Printf("  Check interval: %g seconds", cfg.Interval.Seconds())
	log.Printf("  Discord webhook: %s", webhook)
	log.Printf("  Retailers: %s", strings.Join(registry.Names(), ", "))
	for _, p := range cfg.Products {
		keys := p.Retailers()
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = string(k)
		}
		log.Printf("    %s: %s", p.Name, strings.Join(names, ", "))
	}
	log.Printf(banner)
	log.Status(logging.StatusMessage{Status: logging.Startup, Tasks: len(monitor.BuildTasks(cfg.Products, registry))})
}
