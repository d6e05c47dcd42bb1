package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"blog/pkg/api"
	"blog/pkg/auth"
	"blog/pkg/censor"
	"blog/pkg/config"
	"blog/pkg/media"
	"blog/pkg/moderation"
	"blog/pkg/storage"
	"blog/pkg/storage/memdb"
	"blog/pkg/storage/mongo"
)

func main() {
	var (
		configPath     string
		envPath        string
		dev            bool
		httpAddr       string
		logLevel       string
		uploadDir      string
		censorConfPath string
		censorURL      string
		kafkaAddr      string
		kafkaTopic     string
		kafkaBatch     int
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file.")
	flag.StringVar(&envPath, "env", ".env", "Path to .env file with MONGO_URI, MONGO_DB_NAME, JWT_SECRET, PORT.")
	flag.BoolVar(&dev, "dev", false, "Run the server in development mode with in-memory DB.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&uploadDir, "uploads", "", "Directory for uploaded files.")
	flag.StringVar(&censorConfPath, "censconf", "", "Path to JSON file with banned words.")
	flag.StringVar(&censorURL, "censor", "", "URL of a remote censorship service.")
	flag.StringVar(&kafkaAddr, "kafka", "", "Kafka server address in the form 'host:port'.")
	flag.StringVar(&kafkaTopic, "topic", "", "Kafka topic.")
	flag.IntVar(&kafkaBatch, "batch", 0, "Kafka batch size.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}
	if err := cfg.ApplyEnv(envPath); err != nil {
		log.Fatalf("[server] %v", err)
	}

	// Override config with flags if set
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if uploadDir != "" {
		cfg.UploadDir = uploadDir
	}
	if censorConfPath != "" {
		cfg.CensorConfPath = censorConfPath
	}
	if censorURL != "" {
		cfg.CensorURL = censorURL
	}
	if kafkaAddr != "" {
		cfg.KafkaAddr = kafkaAddr
	}
	if kafkaTopic != "" {
		cfg.KafkaTopic = kafkaTopic
	}
	if kafkaBatch != 0 {
		cfg.KafkaBatch = kafkaBatch
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	if err := cfg.Validate(dev); err != nil {
		log.Fatalf("[server] invalid configuration: %v", err)
	}
	if !strings.Contains(cfg.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	var (
		sdb storage.Storage
		mdb *mongo.Storage
	)
	switch dev {
	case false:
		mdb, err = connectMongo(cfg)
		if err != nil {
			log.Fatalf("[server] %v", err)
		}
		sdb = mdb

	case true:
		log.Info("[server] run server with in memory DB")
		sdb = memdb.New()
	}

	ms, err := media.New(cfg.UploadDir, cfg.MaxUploadBytes())
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	var moderator api.Moderator
	switch {
	case cfg.CensorURL != "":
		mc, err := moderation.New(cfg.CensorURL)
		if err != nil {
			log.Fatalf("[server] failed to create moderation client: %v", err)
		}
		mc.RequestID = api.GetRequestID
		moderator = mc
		log.Infof("[server] comments are moderated by %s", cfg.CensorURL)
	case cfg.CensorConfPath != "":
		c := censor.New()
		if err := c.LoadFromJSON(cfg.CensorConfPath); err != nil {
			log.Fatalf("[server] failed to load censor config file %s: %v", cfg.CensorConfPath, err)
		}
		moderator = c
		log.Infof("[server] comments are moderated with %s", cfg.CensorConfPath)
	}

	var kafkaWriter *kafka.Writer
	if cfg.KafkaAddr != "" && cfg.KafkaTopic != "" {
		kafkaWriter = &kafka.Writer{
			Addr:      kafka.TCP(cfg.KafkaAddr),
			Topic:     cfg.KafkaTopic,
			BatchSize: cfg.KafkaBatch,
		}
		defer kafkaWriter.Close()

		err := createTopic(kafkaWriter.Addr.String(), kafkaWriter.Topic)
		if err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
	} else {
		log.Warnf("[server] kafka was not configured, logs will not be sent to Kafka")
	}

	apiCfg := api.Config{
		ServiceName: cfg.ServiceName,
		Storage:     sdb,
		Auth:        auth.New(sdb, cfg.JWTSecret, cfg.TokenTTL),
		Media:       ms,
		Moderator:   moderator,
	}
	if kafkaWriter != nil {
		apiCfg.LogWriter = kafkaWriter
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.New(apiCfg).Router(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}

	if mdb != nil {
		mdb.Close(shutdownCtx)
		log.Info("[server] disconnected from DB")
	}
}

func connectMongo(cfg config.Config) (*mongo.Storage, error) {
	conf := mongo.Config{URI: cfg.MongoURI, DBName: cfg.MongoDBName}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := mongo.New(ctx, &conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrConnectDB, err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
	}

	log.Infof("[server] connected to mongo: %s", conf)
	return db, nil
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
