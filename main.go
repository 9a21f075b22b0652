package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Conceptual-Machines/hb100-editor/internal/config"
	"github.com/Conceptual-Machines/hb100-editor/internal/editor"
	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	log.SetFlags(0)
	log.Println("\nOpen source HB100 editor (experimental and WIP)")
	log.Println("  ####################################################################")
	log.Println("  #                                                                  #")
	log.Println("  #   NOTE WELL: Not affiliated with, nor endorsed by, the vendor    #")
	log.Println("  #                                                                  #")
	log.Println("  ####################################################################")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration: environment defaults, then flags
	cfg := config.Load()
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		logger.Fatal("Invalid command line", logger.Fields{"err": err})
		return 1
	}
	logger.Configure(cfg.DebugLevel, cfg.DebugTimestamps, !cfg.DisableColors)

	// Initialize Sentry (optional)
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "hb100-editor@" + releaseVersion,
			Debug:       cfg.Environment != environmentProduction,
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	// Handle SIGINT (CTRL-C), SIGTERM (from service managers)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ed, err := editor.New(cfg)
	if err != nil {
		logger.Fatal("Startup failed", logger.Fields{"err": err})
		return 1
	}
	if err := ed.Run(ctx); err != nil {
		sentry.CaptureException(err)
		logger.Fatal("Editor failed", logger.Fields{"err": err})
		return 1
	}

	log.Println("\nBye!")
	return 0
}
