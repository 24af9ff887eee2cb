package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codebuildervaibhav/video-summary/internal/bootstrap"
	"github.com/codebuildervaibhav/video-summary/internal/cleanup"
	"github.com/codebuildervaibhav/video-summary/internal/config"
	"github.com/codebuildervaibhav/video-summary/internal/logger"
	"github.com/codebuildervaibhav/video-summary/internal/pipeline"
	"github.com/codebuildervaibhav/video-summary/internal/platform"
	"github.com/codebuildervaibhav/video-summary/internal/queue"
	"github.com/codebuildervaibhav/video-summary/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidsum", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		videoURL   = fs.String("url", "", "video URL to summarize")
		hint       = fs.String("platform", "", "platform hint used when the URL is not recognized")
		configPath = fs.String("config", "config/config.yaml", "path to config.yaml")
		asJSON     = fs.Bool("json", false, "print the result as JSON")
		save       = fs.Bool("save", false, "write the summary under the output directory")
		authorize  = fs.Bool("authorize-drive", false, "run the Google Drive OAuth flow and store the token")
		verbose    = fs.Bool("v", false, "log pipeline internals to stdout")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("config: "+err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *authorize {
		gd := cfg.GoogleDrive
		if err := storage.Authorize(ctx, gd.CredentialsFile, gd.TokenFile, os.Stdin, stdout); err != nil {
			fmt.Fprintln(stderr, errorStyle.Render("authorize: "+err.Error()))
			return 1
		}
		fmt.Fprintln(stdout, okStyle.Render("token saved to "+gd.TokenFile))
		return 0
	}

	if *videoURL == "" {
		fs.Usage()
		return 2
	}

	log := logger.Discard()
	if *verbose {
		log = logger.New("debug", cfg.Logging.Format)
	}
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return 1
	}

	req := pipeline.Request{
		SummaryID: fmt.Sprintf("cli_%d", os.Getpid()),
		VideoURL:  *videoURL,
		Platform:  platform.Choose(*videoURL, *hint),
	}

	var sink *progressPrinter
	if !*asJSON {
		sink = newProgressPrinter(stderr)
	}
	coordinator := bootstrap.Coordinator(cfg, log, sinkOrNil(sink))

	res, err := coordinator.Run(ctx, req)
	if err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) {
			fmt.Fprintln(stderr, errorStyle.Render(fmt.Sprintf("failed while %s after %s: %v", se.Stage, se.Elapsed.Round(time.Millisecond), se.Err)))
		} else {
			fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		}
		return 1
	}

	if *save {
		job, err := queue.NewJob(res)
		if err == nil {
			var path string
			path, err = storage.NewLocalStorage(cfg.Storage.OutputDir).SaveSummary(job.Record)
			if err == nil {
				fmt.Fprintln(stderr, mutedStyle.Render("saved "+path))
			}
		}
		if err != nil {
			fmt.Fprintln(stderr, errorStyle.Render("save: "+err.Error()))
		}
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
			return 1
		}
		return 0
	}

	fmt.Fprintln(stdout, renderResult(res))
	return 0
}

// sinkOrNil keeps a nil *progressPrinter from becoming a non-nil Sink.
func sinkOrNil(p *progressPrinter) progressSink {
	if p == nil {
		return nil
	}
	return p
}
