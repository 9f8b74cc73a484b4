// Command moq-relay runs a standalone MoQ relay: it accepts native-QUIC
// sessions, forwards announced broadcasts between publishers and
// subscribers, and optionally dials an upstream relay and reports health
// over HTTP.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/moqtransfork/moqrelay/internal/version"
	"github.com/moqtransfork/moqrelay/relay"
	"github.com/moqtransfork/moqrelay/relay/health"
)

type config struct {
	Address          string
	CertFile         string
	KeyFile          string
	UpstreamURL      string
	HealthCheckAddr  string
	WebTransportAddr string
	RelayConfig      relay.Config
}

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "path to config file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full("moq-relay"))
		return
	}

	config, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tlsConfig, err := setupTLS(config.CertFile, config.KeyFile)
	if err != nil {
		log.Fatalf("Failed to setup TLS: %v", err)
	}

	slog.Info("starting moq-relay", "address", config.Address)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	healthHandler := health.NewStatusHandler()
	if config.UpstreamURL != "" {
		healthHandler.SetUpstreamRequired(true)
	}

	server := &relay.Server{
		Addr:      config.Address,
		TLSConfig: tlsConfig,
		Config:    &config.RelayConfig,
		Health:    healthHandler,
		CheckHTTPOrigin: func(r *http.Request) bool {
			return true
		},
	}

	var httpServer *http.Server
	if config.HealthCheckAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", healthHandler.ServeHTTP)
		mux.HandleFunc("/health/live", healthHandler.ServeLive)
		mux.HandleFunc("/health/ready", healthHandler.ServeReady)
		mux.Handle("/metrics", promhttp.Handler())

		httpServer = &http.Server{
			Addr:    config.HealthCheckAddr,
			Handler: mux,
		}

		go func() {
			log.Printf("health server starting on %s", config.HealthCheckAddr)
			log.Println("  /health       - health check")
			log.Println("  /health/live  - liveness probe")
			log.Println("  /health/ready - readiness probe")
			log.Println("  /metrics      - prometheus metrics")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("health server error: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("starting relay on %s", config.Address)
		if err := server.ListenAndServe(); err != nil {
			log.Printf("relay server error: %v", err)
		}
	}()

	if config.WebTransportAddr != "" {
		go func() {
			log.Printf("starting webtransport listener on %s", config.WebTransportAddr)
			if err := server.ListenAndServeWebTransport(config.WebTransportAddr); err != nil {
				log.Printf("webtransport server error: %v", err)
			}
		}()
	}

	log.Println("relay started successfully")

	<-ctx.Done()
	cancel()

	slog.Info("shutting down relay...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down health server: %v", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during relay shutdown: %v", err)
	}

	slog.Info("relay stopped")
}

func loadConfig(filename string) (*config, error) {
	type yamlConfig struct {
		Server struct {
			Address          string `yaml:"address"`
			CertFile         string `yaml:"cert_file"`
			KeyFile          string `yaml:"key_file"`
			HealthCheckAddr  string `yaml:"health_check_addr"`
			WebTransportAddr string `yaml:"webtransport_addr"`
		} `yaml:"server"`
		Relay struct {
			UpstreamURL       string `yaml:"upstream_url"`
			OriginRegistryURL string `yaml:"origin_registry_url"`
			GroupCacheSize    int    `yaml:"group_cache_size"`
			FrameCapacity     int    `yaml:"frame_capacity"`
		} `yaml:"relay"`
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var ymlConfig yamlConfig
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&ymlConfig); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if ymlConfig.Relay.FrameCapacity == 0 {
		ymlConfig.Relay.FrameCapacity = 1500
	}
	if ymlConfig.Relay.GroupCacheSize == 0 {
		ymlConfig.Relay.GroupCacheSize = 100
	}

	cfg := &config{
		Address:          ymlConfig.Server.Address,
		CertFile:         ymlConfig.Server.CertFile,
		KeyFile:          ymlConfig.Server.KeyFile,
		UpstreamURL:      ymlConfig.Relay.UpstreamURL,
		HealthCheckAddr:  ymlConfig.Server.HealthCheckAddr,
		WebTransportAddr: ymlConfig.Server.WebTransportAddr,
		RelayConfig: relay.Config{
			Upstream:          ymlConfig.Relay.UpstreamURL,
			OriginRegistryURL: ymlConfig.Relay.OriginRegistryURL,
			FrameCapacity:     ymlConfig.Relay.FrameCapacity,
			GroupCacheSize:    ymlConfig.Relay.GroupCacheSize,
			HealthCheckAddr:   ymlConfig.Server.HealthCheckAddr,
			WebTransportAddr:  ymlConfig.Server.WebTransportAddr,
		},
	}

	return cfg, nil
}

func setupTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificates: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h3", "moq-00"},
	}, nil
}
