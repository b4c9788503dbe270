package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/fagerbits/quizrelay/internal/testwebhooks"
	"github.com/fagerbits/quizrelay/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumWebhooks = 100
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the relay")
		numWebhooks = flag.Int("webhooks", defaultNumWebhooks, "Number of synthetic webhooks to deliver")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent senders")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		secret      = flag.String("secret", "", "Shared webhook secret, if the relay checks one")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testwebhooks.Config{
		BaseURL:     *baseURL,
		NumWebhooks: *numWebhooks,
		Workers:     *workers,
		Timeout:     *timeout,
		Secret:      *secret,
		Verbose:     *verbose,
	}

	if err := testwebhooks.Run(ctx, config); err != nil {
		os.Stderr.WriteString("smoke test failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
