package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pressuredash/internal/config"
	"pressuredash/internal/db"
	"pressuredash/internal/httpapi"
	"pressuredash/internal/migrate"
	"pressuredash/internal/modules/pressure"
	"pressuredash/internal/modules/pressure/aggregator"
	"pressuredash/internal/modules/pressure/repository"
	"pressuredash/internal/modules/pressure/service"
	"pressuredash/internal/modules/pressure/views"
	"pressuredash/internal/mqtt"
	"pressuredash/internal/sensorapi"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sensorAPIURL", cfg.SensorAPIURL,
		"sensorName", cfg.SensorName,
		"pollInterval", cfg.PollInterval,
		"fetchTimeout", cfg.FetchTimeout,
		"thresholdLow", cfg.ThresholdLow,
		"thresholdHigh", cfg.ThresholdHigh,
		"timezone", cfg.Location.String(),
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopicPrefix", cfg.MQTTTopicPrefix,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(dbConn)
	if err != nil {
		return err
	}
	logger.Info("database ready", "migrationsApplied", applied)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	snapshotRepository := repository.NewRepository(dbConn)

	// Left nil unless enabled; a typed nil would not compare equal to nil.
	var publisher service.SnapshotPublisher
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTTEnabled() {
		mqttPublisher = mqtt.NewPublisher(cfg, logger)
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := mqttPublisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// Paho keeps retrying in the background; publishes fail until then.
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		publisher = mqttPublisher
		defer func() {
			logger.Info("mqtt disconnecting")
			mqttPublisher.Disconnect()
		}()
	} else {
		logger.Info("mqtt disabled (MQTT_BROKER not set)")
	}

	client := sensorapi.NewClient(cfg.SensorAPIURL, cfg.FetchTimeout, cfg.Location, logger)
	svc := service.NewService(client, snapshotRepository, publisher, service.Options{
		SensorName: cfg.SensorName,
		Thresholds: aggregator.Thresholds{Low: cfg.ThresholdLow, High: cfg.ThresholdHigh},
		Reference:  cfg.ReferencePressure,
		Location:   cfg.Location,
	}, logger)

	mux := httpapi.NewMux(dbConn, svc)
	pressure.RegisterFeature(mux, svc, snapshotRepository)
	srv := httpapi.NewServer(cfg, mux, logger)

	pollCtx, stopPolling := context.WithCancel(ctx)
	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		_ = svc.Run(pollCtx, cfg.PollInterval)
	}()
	defer func() {
		stopPolling()
		<-pollDone
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
