package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/openscrape/facedex/internal/config"
	"github.com/openscrape/facedex/internal/detector"
	"github.com/openscrape/facedex/internal/pipeline"
	"github.com/openscrape/facedex/internal/storage"
	"github.com/openscrape/facedex/internal/storage/mock"
)

var processCmd = &cobra.Command{
	Use:   "process [url...]",
	Short: "Fetch and process a batch of image URLs",
	Long: `Fetch a batch of scraped image URLs and run them through the
pipeline: duplicate and quality filtering, face detection, and
identity resolution. URLs are given as arguments or read from a
file with --file (one per line, # comments allowed).`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("file", "", "File with image URLs, one per line")
	processCmd.Flags().Int("concurrency", 4, "Number of images processed in parallel")
	processCmd.Flags().Float64("min-det-score", 0.5, "Ignore faces below this detection score")
	processCmd.Flags().Bool("dry-run", false, "Process in memory without persisting anything")
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading URL file: %w", err)
	}
	return urls, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	urlFile := mustGetString(cmd, "file")
	concurrency := mustGetInt(cmd, "concurrency")
	minDetScore := mustGetFloat64(cmd, "min-det-score")
	dryRun := mustGetBool(cmd, "dry-run")

	urls := args
	if urlFile != "" {
		fromFile, err := readURLFile(urlFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return errors.New("no URLs given; pass them as arguments or via --file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	var store storage.Store
	if dryRun {
		fmt.Println("Mode: DRY RUN (nothing will be persisted)")
		store = mock.New()
	} else {
		repo, pool, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = repo
	}

	gate, registry, err := restoreState(ctx, cfg, store)
	if err != nil {
		return err
	}
	fmt.Printf("Restored %d identities, %d known images\n", registry.Count(), gate.Known().Len())

	var objects pipeline.ObjectSink
	if !dryRun {
		objStore, err := newObjectSink(ctx, cfg)
		if err != nil {
			return err
		}
		if objStore != nil {
			objects = objStore
			fmt.Printf("Archiving accepted images to bucket %q\n", cfg.ObjectStore.Bucket)
		}
	}

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetDescription("Processing images"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	p := pipeline.New(pipeline.Config{
		Gate:        gate,
		Registry:    registry,
		Detector:    detector.NewClient(cfg.Detector.URL),
		Fetcher:     pipeline.NewHTTPFetcher(cfg.Admission.MaxFileBytes),
		Store:       store,
		Objects:     objects,
		Concurrency: concurrency,
		MinDetScore: minDetScore,
		OnImageDone: func(pipeline.ImageResult) {
			_ = bar.Add(1)
		},
	})

	report, err := p.ProcessBatch(ctx, urls)
	fmt.Println()
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return fmt.Errorf("batch aborted: %w", err)
	}

	if !dryRun {
		if err := store.SaveIdentities(context.Background(), registry.Snapshot()); err != nil {
			return fmt.Errorf("saving identity snapshot: %w", err)
		}
		fmt.Printf("Saved snapshot of %d identities\n", registry.Count())
	}
	return nil
}

func printReport(report *pipeline.Report) {
	fmt.Printf("Requested: %d images\n", report.Requested)
	fmt.Printf("Accepted:  %d\n", report.Accepted)
	fmt.Printf("Rejected:  %d duplicate, %d quality, %d corrupt\n",
		report.RejectedDuplicate, report.RejectedQuality, report.RejectedCorrupt)
	fmt.Printf("Faces:     %d detected, %d matched, %d new identities\n",
		report.FacesDetected, report.FacesMatched, report.FacesNewIdentity)

	var failures []pipeline.ImageResult
	for _, result := range report.PerImage {
		if result.Status == "corrupt" {
			failures = append(failures, result)
		}
	}
	if len(failures) > 0 {
		fmt.Printf("\nFailures:\n")
		for _, result := range failures {
			fmt.Printf("  %s: %s\n", result.SourceURL, result.Detail)
		}
	}
}
