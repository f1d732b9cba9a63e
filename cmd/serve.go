package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/detector"
	"github.com/openscrape/facedex/internal/pipeline"
	"github.com/openscrape/facedex/internal/web"
	"github.com/openscrape/facedex/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the facedex API server. It exposes image ingestion,
read-only face matching, identity management and corpus stats.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("concurrency", 4, "Number of images processed in parallel per batch")
	serveCmd.Flags().Float64("min-det-score", 0.5, "Ignore faces below this detection score")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	fmt.Printf("Connecting to PostgreSQL database...\n")
	store, pool, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	gate, registry, err := restoreState(ctx, cfg, store)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d identities, %d known images\n", registry.Count(), gate.Known().Len())
	if cfg.Matching.HNSWIndex {
		fmt.Printf("In-memory HNSW candidate index enabled\n")
	}

	objects, err := newObjectSink(ctx, cfg)
	if err != nil {
		return err
	}
	var sink pipeline.ObjectSink
	var covers handlers.CoverSource
	if objects != nil {
		sink = objects
		covers = objects
		fmt.Printf("Object store enabled, bucket %q\n", cfg.ObjectStore.Bucket)
	}

	namer, err := newNamer(ctx, cfg, "")
	if err != nil {
		return err
	}
	if namer != nil {
		fmt.Printf("Label suggestions enabled (%s)\n", namer.Name())
	}

	detectorClient := detector.NewClient(cfg.Detector.URL)
	p := pipeline.New(pipeline.Config{
		Gate:        gate,
		Registry:    registry,
		Detector:    detectorClient,
		Fetcher:     pipeline.NewHTTPFetcher(cfg.Admission.MaxFileBytes),
		Store:       store,
		Objects:     sink,
		Concurrency: mustGetInt(cmd, "concurrency"),
		MinDetScore: mustGetFloat64(cmd, "min-det-score"),
	})

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(web.Deps{
		Pipeline: p,
		Registry: registry,
		Store:    store,
		Detector: detectorClient,
		Covers:   covers,
		Namer:    namer,
	}, host, port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		// Persist what the server learned before going down.
		saveCtx, saveCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer saveCancel()
		if err := store.SaveIdentities(saveCtx, registry.Snapshot()); err != nil {
			fmt.Printf("Warning: failed to save identity snapshot: %v\n", err)
		} else {
			fmt.Printf("Saved snapshot of %d identities\n", registry.Count())
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facedex API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
