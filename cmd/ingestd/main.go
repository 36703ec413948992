// ingestd tails object-storage buckets for change events and republishes
// them as canonical events on a message bus.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectstream/ingestd/pkg/apiserver"
	"github.com/objectstream/ingestd/pkg/auditlog"
	"github.com/objectstream/ingestd/pkg/backlog"
	"github.com/objectstream/ingestd/pkg/bus"
	"github.com/objectstream/ingestd/pkg/cleanup"
	"github.com/objectstream/ingestd/pkg/config"
	"github.com/objectstream/ingestd/pkg/coordinator"
	"github.com/objectstream/ingestd/pkg/database"
	"github.com/objectstream/ingestd/pkg/event"
	"github.com/objectstream/ingestd/pkg/grpchealth"
	"github.com/objectstream/ingestd/pkg/reader"
	"github.com/objectstream/ingestd/pkg/sourceclient"
)

// buildVersion resolves "ingestd/<revision>[-dirty]" from the VCS
// metadata Go embeds at build time, or "ingestd/dev" when there is none
// (go test, non-git builds).
func buildVersion() string {
	rev, dirty := "dev", false
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					rev = s.Value
					if len(rev) > 12 {
						rev = rev[:12]
					}
				}
			case "vcs.modified":
				dirty = s.Value == "true"
			}
		}
	}
	if dirty {
		rev += "-dirty"
	}
	return "ingestd/" + rev
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func sourceClientConfig(src config.SourceConfig) sourceclient.Config {
	return sourceclient.Config{
		Name:               src.Name,
		Bucket:             src.Bucket,
		Host:               src.Host,
		Port:               src.Port,
		HTTPS:              src.HTTPS,
		LocationConstraint: src.LocationConstraint,
		Auth: sourceclient.Credentials{
			AccessKey: src.Auth.AccessKey,
			SecretKey: src.Auth.SecretKey,
		},
	}
}

// refreshSources reloads configuration and rebuilds the source client of
// every reader whose editable fields (credentials, host, port, TLS)
// changed. Progress on the Coordinator is untouched.
func refreshSources(ctx context.Context, configDir string, registry *reader.Registry, fingerprints map[string]string) {
	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		slog.Error("Config refresh failed; keeping existing configuration", "error", err)
		return
	}
	for bucketID, src := range cfg.Sources {
		r, ok := registry.Get(bucketID)
		if !ok {
			continue
		}
		fp := src.EditableFingerprint()
		if fp == fingerprints[bucketID] {
			continue
		}
		r.Refresh(sourceClientConfig(src))
		fingerprints[bucketID] = fp
		slog.Info("Rebuilt source client after config change", "bucket", bucketID)
	}
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	httpAddr := flag.String("http-addr", getEnv("HTTP_ADDR", ":8080"), "Operator HTTP API listen address")
	grpcAddr := flag.String("grpc-addr", getEnv("GRPC_ADDR", ":9090"), "gRPC health listen address")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ver := buildVersion()
	slog.Info("Starting", "version", ver)

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	health := grpchealth.NewServer()
	go func() {
		if err := health.Serve(ctx, *grpcAddr); err != nil {
			slog.Error("gRPC health server stopped", "error", err)
		}
	}()

	coord, err := coordinator.Dial(ctx, cfg.QueuePopulator.ZookeeperServers, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to dial Coordinator: %v", err)
	}
	defer coord.Close()

	producer, err := bus.NewFranzProducer(cfg.QueuePopulator.Brokers)
	if err != nil {
		log.Fatalf("Failed to dial message bus: %v", err)
	}
	defer producer.Close()

	backlogTracker := backlog.NewTracker(coord, producer, cfg.QueuePopulator.BacklogRoot)

	promReg := prometheus.NewRegistry()
	backlogMetrics := backlog.NewMetrics(promReg)
	backlogReporter := backlog.NewReporter(backlogTracker, backlogMetrics, cfg.QueuePopulator.Topic,
		cfg.QueuePopulator.BacklogConsumerGroups, cfg.QueuePopulator.BacklogReportInterval)
	backlogReporter.Start(ctx)
	defer backlogReporter.Stop()

	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	store, err := auditlog.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("Failed to open audit log store: %v", err)
	}
	defer store.Close()
	auditor := auditlog.NewRecorder(store)

	registry := reader.NewRegistry()
	fingerprints := map[string]string{}
	for bucketID, src := range cfg.Sources {
		rc := reader.Config{
			SourceBucket:   src.Bucket,
			TargetBucket:   event.TargetBucket(cfg.QueuePopulator.TargetBucketPrefix, src.Name),
			Topic:          cfg.QueuePopulator.Topic,
			MaxRead:        cfg.QueuePopulator.BatchMaxRead,
			MetadataFanOut: cfg.QueuePopulator.MetadataFanOut,
			PublishTimeout: cfg.QueuePopulator.BatchPublishTimeout,
			Auditor:        auditor,
			Source:         sourceClientConfig(src),
		}
		r := reader.New(rc, coord, cfg.QueuePopulator.ZookeeperPath, producer)
		if err := r.Setup(ctx); err != nil {
			slog.Error("Failed to set up bucket reader; skipping", "bucket", bucketID, "error", err)
			continue
		}
		registry.Put(bucketID, r)
		fingerprints[bucketID] = src.EditableFingerprint()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			refreshSources(ctx, *configDir, registry, fingerprints)
		}
	}()

	scheduler := reader.NewScheduler(registry, cfg.QueuePopulator.CronRule, cfg.QueuePopulator.MaxParallelReaders)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	cleanupSvc := cleanup.NewService(cfg.Retention, store)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	api := apiserver.NewServer(registry, store, promReg, ver)
	if err := api.Start(*httpAddr); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	health.SetServing(true)
	slog.Info("ingestd ready", "sources", len(cfg.Sources), "http_addr", *httpAddr, "grpc_addr", *grpcAddr)

	<-ctx.Done()
	slog.Info("Shutting down")

	health.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown error", "error", err)
	}
	health.Stop()
}
