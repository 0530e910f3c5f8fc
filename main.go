package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/mtaylor91/signaling-server/pkg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load a local .env if one exists
	_ = godotenv.Load()

	config, err := pkg.LoadConfig()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	config.ConfigureLogging()

	manager := pkg.NewManager(config)

	signalingServer := &http.Server{
		Addr: config.EventsAddr,
		Handler: promhttp.InstrumentHandlerInFlight(pkg.EventServerInFlightGauge,
			promhttp.InstrumentHandlerCounter(pkg.EventServerRequestsCounter,
				manager.Handler())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:              config.MetricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	log.WithFields(log.Fields{
		"addr":            config.EventsAddr,
		"start_threshold": config.StartThreshold,
		"start_once":      config.StartOnce,
		"cors_allow":      config.CORSAllow,
	}).Info("Starting signaling server...")
	go func() {
		err := signalingServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Signaling server failed: ", err)
		}
	}()

	log.WithField("addr", config.MetricsAddr).Info("Starting metrics server...")
	go func() {
		err := metricsServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Metrics server failed: ", err)
		}
	}()

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; they end
	// when the process exits.
	log.Info("Shutting down signaling server...")
	if err := signalingServer.Shutdown(ctx); err != nil {
		log.Fatal("Signaling server shutdown failed: ", err)
	}

	log.Info("Shutting down metrics server...")
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Fatal("Metrics server shutdown failed: ", err)
	}
}
