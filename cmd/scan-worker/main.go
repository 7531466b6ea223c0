package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qrmint/scantrack/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := workerHTTPOpts{
		httpAddr:    cfg.ScanTrack.WorkerHTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}

	if err := RunScanWorker(ctx, cfg, defaultWorkerFactories(), opts); err != nil && err != context.Canceled {
		panic(err)
	}
}
