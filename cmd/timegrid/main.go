package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timegrid/internal/clock"
	"timegrid/internal/config"
	"timegrid/internal/feed"
	"timegrid/internal/ics"
	"timegrid/internal/layout"
	appLog "timegrid/internal/log"
	"timegrid/internal/web"
	"timegrid/internal/week"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("invalid log level, using INFO", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(level)

	appLog.Info("timegrid starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"start_hour", conf.StartHour,
		"refresh", conf.RefreshCron,
		"column_mode", conf.ColumnMode,
		"inverted_policy", conf.InvertedPolicy,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := web.ResolveLocation(conf.Timezone)
	clk := clock.NewSystem()
	store := feed.NewStore(ics.NewFetcher(conf.CacheDir, nil), feedsFrom(conf), loc, clk)

	if flags.once {
		if err := runOnce(ctx, conf, store, loc, clk, os.Stdout); err != nil {
			appLog.Error("single-shot run failed", err)
			os.Exit(1)
		}
		return
	}

	if err := store.Refresh(ctx); err != nil {
		appLog.Error("initial feed refresh had errors", err)
	}

	sched, err := feed.NewScheduler(store, conf.RefreshCron, time.Minute)
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	appLog.Info("feed scheduler started", "next", sched.Next().Format(time.RFC3339))

	srv := web.NewServer(conf, store, clk)
	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	appLog.Info("timegrid exiting")
}

// runOnce refreshes the feeds and writes the current week's layout as JSON.
func runOnce(ctx context.Context, conf *config.Config, store *feed.Store, loc *time.Location, clk clock.Clock, out io.Writer) error {
	if err := store.Refresh(ctx); err != nil {
		appLog.Error("feed refresh had errors", err)
	}

	first, _ := week.ParseWeekday(conf.WeekStart)
	start := week.StartOfWeek(clk.Now().In(loc), first)
	view, err := week.Build(start, store.Events(start, start.AddDate(0, 0, layout.DaysPerWeek)), layout.NewEngine(conf.LayoutOptions()))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func feedsFrom(conf *config.Config) []ics.Feed {
	feeds := make([]ics.Feed, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		feeds = append(feeds, ics.Feed{ID: c.FeedID(), URL: c.URL})
	}
	return feeds
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/timegrid/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh feeds once, print this week's layout as JSON and exit")

	flag.Parse()

	return cfg
}
