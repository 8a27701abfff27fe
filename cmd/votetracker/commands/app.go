package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"votetracker/internal/components/chrono"
	"votetracker/internal/components/telemetry"
	"votetracker/internal/config"
	"votetracker/internal/notify"
	"votetracker/internal/samplestore"
	"votetracker/internal/scrapers/contest"
	"votetracker/internal/tracker"
	"votetracker/lib/restyutil"
	libtelemetry "votetracker/lib/telemetry"
)

// app is every long lived component of a tracking session, wired from the config.
type app struct {
	cfg       config.Config
	tel       telemetry.API
	otel      libtelemetry.Telemetry
	database  *sql.DB
	store     *samplestore.Store
	tracker   *tracker.Tracker
	scheduler *tracker.Scheduler
}

func openApp(ctx context.Context, cfg config.Config, listeners ...tracker.Listener) (*app, error) {
	a := &app{
		cfg: cfg,
		tel: telemetry.NewSlogAPI(slog.Default()),
	}

	otel, err := libtelemetry.SetupFromFile(ctx, "votetracker", telemetryPath)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	a.otel = otel
	if otel.MeterProvider != nil {
		libtelemetry.InstrumentPerfStats(ctx, time.Second*30)
	}

	registry, err := cfg.Registry()
	if err != nil {
		a.close()
		return nil, err
	}

	var output restyutil.InstrumentOutput
	if cfg.Verbose && cfg.DumpDir != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("open dump dir: %w", err)
		}
		slog.Debug("dumping http exchanges", "dir", fsOutput.Directory())
		output = fsOutput
	}

	client, err := contest.NewClient(contest.Options{
		BaseURL:           cfg.BaseUrl,
		ContestID:         cfg.ContestId,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.RequestTimeout(),
		CloudflareBypass:  cfg.CloudflareBypass,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Output:            output,
	}, a.tel)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.Database.Enabled() {
		store, err := a.openStore(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
		listeners = append(listeners, store)
	}

	if cfg.Alerts.Enabled {
		sender := notify.NewSmtpSender(notify.SmtpConfig{
			Server:   cfg.Alerts.SmtpHost,
			Port:     cfg.Alerts.SmtpPort,
			Username: cfg.Alerts.Username,
			Password: cfg.Alerts.Password,
			From:     cfg.Alerts.From,
			To:       cfg.Alerts.To,
		})
		listeners = append(listeners, notify.NewLeaderAlert(sender, a.tel))
	}

	clock := chrono.NewStandardTime()
	a.tracker = tracker.NewTracker(registry, tracker.TrackerOptions{Window: cfg.Window}, clock, a.tel)
	aggregator := tracker.NewAggregator(registry, client, clock, a.tel)
	a.scheduler = tracker.NewScheduler(a.tracker, aggregator, cfg.Interval(), clock, a.tel, listeners...)

	return a, nil
}

func (a *app) openStore(ctx context.Context) (*samplestore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	database, err := a.cfg.Database.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := samplestore.NewStore(database, a.tel)
	err = store.Migrate(ctx)
	if err != nil {
		database.Close()
		return nil, err
	}

	a.database = database
	a.store = &store
	return a.store, nil
}

func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler.Wait()
	}
	if a.database != nil {
		err := a.database.Close()
		if err != nil {
			slog.Warn("failed to close database", "err", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err := a.otel.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}
