package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"plant-disease-api/config"
	"plant-disease-api/handlers"
	"plant-disease-api/inference"
	"plant-disease-api/models"
	"plant-disease-api/services"
	"plant-disease-api/store"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	predictionStore, err := openPredictionStore(cfg.Store, log)
	if err != nil {
		log.Fatalf("Failed to open prediction store: %v", err)
	}
	defer predictionStore.Close()

	// Connect to notes database
	db, err := gorm.Open(dialector(cfg.Database), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	noteStore := store.NewGormStore[models.Note](db)
	if err := noteStore.Migrate(); err != nil {
		log.Fatalf("Failed to migrate notes table: %v", err)
	}
	defer noteStore.Close()

	events, err := services.NewEventBus(cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, prediction events disabled")
	}
	defer events.Close()

	publishers := services.Fanout{events}
	if cfg.MQTT.URL != "" {
		mqttPub, err := services.NewMQTTPublisher(cfg.MQTT, log)
		if err != nil {
			log.WithError(err).Warn("MQTT unavailable, events will not reach the broker")
		} else {
			defer mqttPub.Close()
			publishers = append(publishers, mqttPub)
		}
	}

	var classifier inference.Classifier
	onnx, err := inference.NewONNXClassifier(cfg.Model)
	if err != nil {
		log.WithError(err).WithField("model", cfg.Model.Path).Warn("Model not loaded, POST /predict disabled")
	} else {
		defer onnx.Close()
		classifier = onnx
		log.WithFields(logrus.Fields{
			"model":   cfg.Model.Path,
			"classes": len(onnx.Metadata.Classes),
		}).Info("Model loaded")
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	predictions := services.NewPredictionService(predictionStore, publishers, log)
	router := handlers.NewRouter(handlers.Dependencies{
		Predictions: predictions,
		Notes:       noteStore,
		Classifier:  classifier,
		Events:      events,
		Server:      cfg.Server,
		CORS:        cfg.CORS,
		Logger:      log,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    server.Addr,
			"backend": cfg.Store.Backend,
			"store":   cfg.Store.Path,
		}).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

func openPredictionStore(cfg config.StoreConfig, log logrus.FieldLogger) (store.Store[models.Prediction], error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	if cfg.Backend == config.BackendBolt {
		return store.OpenBoltStore[models.Prediction](cfg.Path, "predictions", log)
	}
	return store.NewFileStore[models.Prediction](cfg.Path, log), nil
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == config.DriverPostgres {
		return postgres.Open(cfg.GetDSN())
	}
	return sqlite.Open(cfg.GetDSN())
}
