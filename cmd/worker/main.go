package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/bibliograph/internal/queue"
	"github.com/OFFIS-RIT/bibliograph/internal/storage"
	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/graph"
	"github.com/OFFIS-RIT/bibliograph/pkg/leaselock"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger/console"
	pgstore "github.com/OFFIS-RIT/bibliograph/pkg/store/pgx"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	// Init s3 client
	inputs, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		ParallelFiles: util.GetEnvInt("WORKER_PARALLEL_FILES", 4),
		MaxRetries:    util.GetEnvInt("WORKER_MAX_RETRIES", 3),
	})
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	// Init rabbitmq
	conn, err := util.RetryWithContext(ctx, 5, func(context.Context) (*amqp.Connection, error) {
		return queue.Dial()
	})
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	processor := &queue.Processor{
		Graph:   graphClient,
		Storage: pgstore.NewSnapshotDBStorageWithConnection(pgConn),
		Inputs:  inputs,
		Locker:  leaselock.New(pgConn, hostname),
		Events:  ch,
	}

	// A single consumer channel with prefetch=1 delivers one message at a
	// time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	deliveries, err := queue.Consume(ctx, consumerCh, hostname, queue.Queues)
	if err != nil {
		logger.Fatal("Failed to start consuming", "err", err)
	}
	logger.Info("Listening for messages", "queues", queue.Queues)

	for d := range deliveries {
		processor.Handle(ctx, consumerCh, d)
	}
	logger.Info("Shutdown signal received, exiting...")
}
