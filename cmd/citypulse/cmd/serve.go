package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"citypulse/internal/api"
	"citypulse/internal/cityapi"
	"citypulse/internal/config"
	"citypulse/internal/dispatch"
	"citypulse/internal/scheduler"
	"citypulse/internal/store"
	"citypulse/internal/trigger"
	"citypulse/pkg/geo"
	"citypulse/pkg/logger"
)

const bikeDistanceCacheSize = 4096

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and evaluation scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	eng, st, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	sched, err := scheduler.NewScheduler(eng, cfg.Schedule, log)
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}
	sched.Start()

	e := api.NewRouter(api.Deps{Store: st, Realtime: eng, Cultural: eng, Log: log})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	// Let any in-flight tick finish before closing the store.
	<-sched.Stop().Done()

	log.Info("server stopped")
	return nil
}

// buildEngine wires the full evaluation pipeline: store, city API
// client, delivery channels, dispatcher, trigger managers. The caller
// owns the returned store and must Close it.
func buildEngine(cfg *config.Config, log *slog.Logger) (*scheduler.Engine, *store.PostgresStore, error) {
	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.NewPostgresStore(connectCtx, cfg.Database.DSN(), cfg.Database.PoolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	city := cityapi.New(
		cfg.CityAPI.BaseURL,
		cfg.CityAPI.APIKey,
		cityapi.WithHTTPClient(&http.Client{Timeout: cfg.CityAPI.Timeout}),
		cityapi.WithRateLimiter(cityapi.NewRateLimiter(
			cfg.CityAPI.RateLimit.PerSecond,
			cfg.CityAPI.RateLimit.Burst,
			cfg.CityAPI.RateLimit.DailyLimit,
		)),
	)

	dispatcher := dispatch.NewDispatcher(st, log, buildChannels(cfg.Channels, log),
		dispatch.WithChannelTimeout(cfg.Channels.Timeout),
		dispatch.WithDedup(dispatch.NewDedupCache(0), cfg.Channels.Cooldown),
	)

	realtime, cultural := buildManagers(cfg.Triggers, log)

	eng := scheduler.NewEngine(st, city, realtime, cultural, dispatcher,
		scheduler.WithLogger(log),
		scheduler.WithWorkers(cfg.Schedule.Workers),
		scheduler.WithSoftDeadline(cfg.Schedule.SoftDeadline),
		scheduler.WithDefaultCoordinate(cfg.Schedule.DefaultLatitude, cfg.Schedule.DefaultLongitude),
		scheduler.WithCulturalPageSize(cfg.Schedule.CulturalPageSize),
		scheduler.WithRetentionAge(cfg.Schedule.Retention.MaxAge),
	)
	return eng, st, nil
}

// buildChannels assembles the enabled delivery channels. With nothing
// enabled the dispatcher gets a no-op channel so evaluation still runs
// end to end and history is recorded.
func buildChannels(cfg config.ChannelsConfig, log *slog.Logger) []dispatch.Channel {
	var channels []dispatch.Channel
	if cfg.Push.Enabled {
		channels = append(channels, dispatch.NewPushChannel(cfg.Push))
	}
	if cfg.Webhook.Enabled {
		channels = append(channels, dispatch.NewWebhookChannel(cfg.Webhook))
	}
	if cfg.Email.Enabled {
		channels = append(channels, dispatch.NewEmailChannel(cfg.Email))
	}
	if cfg.SMS.Enabled {
		channels = append(channels, dispatch.NewSMSChannel(cfg.SMS))
	}
	if len(channels) == 0 {
		log.Warn("no delivery channels enabled, notifications will only be recorded")
		channels = append(channels, dispatch.NewNoOpChannel(log))
	}
	return channels
}

// buildManagers registers the sensor-driven strategies on the realtime
// manager and the event strategies on the cultural one. Temperature is
// registered before air quality so it wins their priority tie.
func buildManagers(cfg config.TriggersConfig, log *slog.Logger) (realtime, cultural *trigger.Manager) {
	realtime = trigger.NewManager(log,
		trigger.NewEmergency(cfg.Emergency),
		trigger.NewTemperature(cfg.Temperature),
		trigger.NewAirQuality(cfg.AirQuality),
		trigger.NewCongestion(cfg.Congestion),
		trigger.NewBikeShare(cfg.BikeShare,
			trigger.WithBikeDistanceCache(geo.NewDistanceCache(bikeDistanceCacheSize))),
	)
	cultural = trigger.NewManager(log, trigger.NewCulture(cfg.Culture))
	return realtime, cultural
}
