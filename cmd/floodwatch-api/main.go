package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"floodwatch/common/database"
	"floodwatch/common/logger"
	mqttcommon "floodwatch/common/mqtt"
	rediscommon "floodwatch/common/redis"
	"floodwatch/internal/app"
	"floodwatch/internal/config"
	"floodwatch/internal/geo"
	"floodwatch/internal/geocode"
	httpapi "floodwatch/internal/http"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
	"floodwatch/internal/routing"
	"floodwatch/internal/scheduler"
	"floodwatch/internal/service"
	"floodwatch/internal/store"
)

const serviceName = "floodwatch-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer rediscommon.Close(redisClient)
	kv := store.NewRedisKV(redisClient)

	checks := map[string]httpapi.HealthCheck{
		"database": func(ctx context.Context) bool { return db.PingContext(ctx) == nil },
		"redis":    func(ctx context.Context) bool { return redisClient.Ping(ctx).Err() == nil },
	}

	var devices service.MessagePublisher
	if cfg.MQTT.Enabled {
		mc, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			return err
		}
		defer mc.Disconnect()
		devices = mc
		checks["mqtt"] = func(context.Context) bool { return mc.IsConnected() }
	}

	var geocoder geocode.Geocoder
	if cfg.Geo.MapsAPIKey != "" {
		g, err := geocode.NewMapsGeocoder(cfg.Geo.MapsAPIKey, "ph")
		if err != nil {
			return err
		}
		geocoder = g
	} else {
		log.Info("No maps key configured, address geocoding disabled")
	}

	hub := realtime.NewHub(log)
	defer hub.Close()
	bridge := realtime.NewRedisBridge(redisClient, hub, log)
	events := service.NewRedisEventStream(redisClient)

	requestsRepo := repository.NewPostgresRescueRequestsRepository(db)
	profilesRepo := repository.NewPostgresProfilesRepository(db)
	evacuationRepo := repository.NewPostgresEvacuationRepository(db)
	alertsRepo := repository.NewPostgresWeatherAlertsRepository(db)
	forecastRepo := repository.NewPostgresWeatherForecastRepository(db)
	zonesRepo := repository.NewPostgresFloodZonesRepository(db)
	equipmentRepo := repository.NewPostgresEquipmentRepository(db)

	throttle := geo.NewThrottle(cfg.Geo.ThrottleInterval)

	authSvc := service.NewAuthService(profilesRepo, kv, cfg.Auth.SessionTTL, bridge, log)
	intakeSvc := service.NewIntakeService(requestsRepo, alertsRepo, geocoder, bridge, events, log)
	rescueSvc := service.NewRescueService(requestsRepo, profilesRepo, bridge, events, log)
	evacuationSvc := service.NewEvacuationService(evacuationRepo, bridge, log)
	alertSvc := service.NewAlertService(alertsRepo, forecastRepo, zonesRepo, devices, cfg.MQTT.AlertTopicPrefix, bridge, log)
	equipmentSvc := service.NewEquipmentService(equipmentRepo, bridge, log)
	profileSvc := service.NewProfileService(profilesRepo, throttle, bridge, log)
	scratchSvc := service.NewScratchService(kv)
	reportSvc := service.NewReportService(requestsRepo, evacuationRepo)

	appCtx := app.NewContext(authSvc, hub, log)
	appCtx.Init()
	defer appCtx.Close()

	router := httpapi.NewRouter(log)
	router.Register(httpapi.Handlers{
		Auth:       httpapi.NewAuthHandler(authSvc, appCtx, log),
		Rescue:     httpapi.NewRescueHandler(intakeSvc, rescueSvc, log),
		Evacuation: httpapi.NewEvacuationHandler(evacuationSvc, log),
		Alerts:     httpapi.NewAlertHandler(alertSvc, log),
		Profiles:   httpapi.NewProfileHandler(profileSvc, log),
		Equipment:  httpapi.NewEquipmentHandler(equipmentSvc, log),
		Scratch:    httpapi.NewScratchHandler(scratchSvc, log),
		Map: httpapi.NewMapHandler(cfg.Tiles,
			routing.NewClient(cfg.Routing.BaseURL, cfg.Routing.Profile, cfg.Routing.Timeout, log),
			geo.Position{Lat: cfg.Geo.DefaultLat, Lng: cfg.Geo.DefaultLng}, log),
		Reports: httpapi.NewReportHandler(reportSvc, log),
		Changes: httpapi.NewChangesHandler(hub, log),
		Checks:  checks,
	})
	handler := httpapi.Logging(log, httpapi.Authenticate(appCtx, log, router))
	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	sched := scheduler.New(log, 30*time.Second)
	if err := sched.Add("alert-expiry", cfg.Schedule.AlertExpiry, scheduler.ExpireAlerts(alertSvc, log)); err != nil {
		return err
	}
	if err := sched.Add("stale-session-sweep", cfg.Schedule.StaleSweep, scheduler.SweepSessions(throttle, cfg.Schedule.StaleAfter, log)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bridge.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	err = g.Wait()
	log.Info("floodwatch-api exited", zap.Error(err))
	return err
}
