package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/oomph-ac/resim/metrics"
	"github.com/oomph-ac/resim/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// The following program runs an authoritative simulation with a few bots fighting each other, next to a
// client simulation predicting one of the players and reconciling with delayed authoritative states.
func main() {
	path := "resim.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	conf, err := settings.Load(path)
	if err != nil {
		fmt.Println("unable to load settings:", err)
		os.Exit(1)
	}
	level, _ := conf.LogLevel()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if conf.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         conf.Sentry.DSN,
			Environment: conf.Sentry.Environment,
		}); err != nil {
			log.Error("unable to initialize sentry", "err", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if conf.Debug.StatsView {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(conf.Debug.StatsViewAddr))

		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	serverMetrics, clientMetrics := metrics.NewCollector("server"), metrics.NewCollector("client")
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if err := serverMetrics.Register(reg); err != nil {
		log.Error("unable to register server metrics", "err", err)
		os.Exit(1)
	}
	if err := clientMetrics.Register(reg); err != nil {
		log.Error("unable to register client metrics", "err", err)
		os.Exit(1)
	}

	h, err := newHost(conf, log, serverMetrics, clientMetrics)
	if err != nil {
		log.Error("unable to create simulation", "err", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.status())
	})
	srv := &http.Server{Addr: conf.Debug.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	log.Info("serving metrics", "addr", conf.Debug.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	h.run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
}
