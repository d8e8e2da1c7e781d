package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"floodwatch/common/database"
	"floodwatch/common/logger"
	mqttcommon "floodwatch/common/mqtt"
	rediscommon "floodwatch/common/redis"
	"floodwatch/internal/config"
	"floodwatch/internal/consumer"
	"floodwatch/internal/geo"
	"floodwatch/internal/realtime"
	"floodwatch/internal/repository"
	"floodwatch/internal/scheduler"
	"floodwatch/internal/service"
)

const serviceName = "floodwatch-locator"

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

	if !cfg.MQTT.Enabled {
		return errors.New("MQTT is disabled; set MQTT_ENABLED=true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := rediscommon.Connect(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	defer rediscommon.Close(redisClient)

	mqttCfg := cfg.MQTT.MQTTConfig
	mqttCfg.ClientID = mqttCfg.ClientID + "-locator"
	mc, err := mqttcommon.NewClient(&mqttCfg, log)
	if err != nil {
		return err
	}
	defer mc.Disconnect()

	// Changes go through Redis so API instances relay them to their
	// change-feed clients.
	hub := realtime.NewHub(log)
	defer hub.Close()
	bridge := realtime.NewRedisBridge(redisClient, hub, log)

	profilesRepo := repository.NewPostgresProfilesRepository(db)
	throttle := geo.NewThrottle(cfg.Geo.ThrottleInterval)
	profileSvc := service.NewProfileService(profilesRepo, throttle, bridge, log)

	hostname, _ := os.Hostname()
	locations := consumer.NewLocationConsumer(cfg.MQTT.LocationTopic, mc, profilesRepo, profileSvc, log)
	dispatch := consumer.NewDispatchConsumer(redisClient, mc, serviceName+"-"+hostname, cfg.MQTT.DispatchTopicPrefix, log)

	sched := scheduler.New(log, cfg.Geo.Timeout)
	if err := sched.Add("stale-session-sweep", cfg.Schedule.StaleSweep, scheduler.SweepSessions(throttle, cfg.Schedule.StaleAfter, log)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer locations.Stop()
		return locations.Start(gctx)
	})
	g.Go(func() error { return dispatch.Start(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	err = g.Wait()
	log.Info("floodwatch-locator exited", zap.Error(err))
	return err
}
