package worker

import (
	"context"
	"encoding/json"
	"time"

	"platesync/internal/config"
	"platesync/internal/importer"
	"platesync/internal/logger"
	"platesync/internal/queue"

	"github.com/segmentio/kafka-go"
)

// Worker consumes drain ticks and runs one queue batch per tick. The queue
// publishes the next tick itself while tasks remain, so the worker never
// loops over the backlog on its own.
type Worker struct {
	config *config.Config
	logger *logger.Logger
	reader *kafka.Reader
	queue  importer.TaskQueue
}

func New(cfg *config.Config, logger *logger.Logger, q importer.TaskQueue) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "platesync-worker",
		Topic:          cfg.TickTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config: cfg,
		logger: logger,
		reader: reader,
		queue:  q,
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for drain ticks...")

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		var event queue.TickEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			w.logger.Error("Failed to parse tick event: %v", err)
			continue
		}

		w.logger.Debug("Received tick %s", event.TickID)

		tickCtx, tickCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := w.queue.Drain(tickCtx, w.config.Import.BatchSize); err != nil {
			w.logger.Error("Drain tick failed: %v", err)
		}
		tickCancel()
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}
