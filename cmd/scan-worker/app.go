package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/qrmint/scantrack/config"
	"github.com/qrmint/scantrack/internal/broker/kafka"
	"github.com/qrmint/scantrack/internal/broker/messages"
	"github.com/qrmint/scantrack/internal/services/archiver"
	"github.com/qrmint/scantrack/internal/storage/pgtracking"
)

type scanConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type workerFactories struct {
	newStorage  func(cfg *config.Config) (repo archiver.Repository, closeFn func(), err error)
	newConsumer func(cfg *config.Config) (c scanConsumer, closeFn func() error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (archiver.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgtracking.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config) (scanConsumer, func() error) {
			topic := cfg.Kafka.ScanRecordedTopicName
			if topic == "" {
				topic = "scan.recorded"
			}
			group := cfg.ScanTrack.KafkaConsumerGroup
			if group == "" {
				group = "scan-worker"
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			c := kafka.NewConsumer(brokers, topic, group)
			return c, c.Close
		},
	}
}

// RunScanWorker поднимает архиватор, консьюмер scan.recorded и сервисный
// HTTP. Завершается по отмене контекста или первой фатальной ошибке.
func RunScanWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	flushInterval := time.Duration(cfg.ScanTrack.WorkerFlushIntervalSeconds) * time.Second
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	batchSize := cfg.ScanTrack.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	arch := archiver.New(repo).WithSettings(flushInterval, batchSize)

	consumer, closeConsumer := f.newConsumer(cfg)
	if closeConsumer != nil {
		defer func() { _ = closeConsumer() }()
	}

	archDone := make(chan struct{})
	go func() {
		arch.Run(runCtx)
		close(archDone)
	}()

	go func() {
		slog.Info("scan consumer started")
		_ = consumer.Consume(runCtx, func(_key, value []byte) error {
			var m messages.ScanRecorded
			if err := json.Unmarshal(value, &m); err != nil {
				// битое сообщение коммитим и пропускаем, иначе зациклимся
				slog.Warn("skip malformed scan message", "err", err)
				return nil
			}
			arch.Enqueue(&m)
			return nil
		})
	}()

	httpOpts.archiver = arch
	httpOpts.cfg = cfg
	err = runWorkerHTTPServer(runCtx, httpOpts)

	// останавливаем архиватор и дожидаемся финального сброса буфера
	cancel()
	<-archDone

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
