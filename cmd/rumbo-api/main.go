// README: Entry point; loads config, wires services, starts HTTP server and background workers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"rumbo/internal/config"
	"rumbo/internal/events"
	httptransport "rumbo/internal/http"
	"rumbo/internal/infra"
	"rumbo/internal/maps"
	"rumbo/internal/modules/chat"
	"rumbo/internal/modules/matching"
	"rumbo/internal/modules/profile"
	"rumbo/internal/modules/stream"
	"rumbo/internal/modules/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load")
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backends are optional; anything unconfigured falls back to the
	// in-memory implementation so the service runs standalone.
	var (
		profiles    profile.Store
		tripStore   trip.Store
		chatStore   chat.Store
		lastRead    chat.LastReadStore
		pickupIndex interface {
			trip.PickupIndex
			matching.GeoIndex
		}
	)

	if cfg.DB.DSN != "" {
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.WithError(err).Fatal("postgres connect")
		}
		defer db.Close()
		profiles = profile.NewPostgresStore(db)
		tripStore = trip.NewPostgresStore(db)
		chatStore = chat.NewPostgresStore(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		memProfiles := profile.NewMemoryStore()
		profiles = memProfiles
		tripStore = trip.NewMemoryStore(memProfiles)
		chatStore = chat.NewMemoryStore()
	}

	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
		defer redisClient.Close()
		pickupIndex = matching.NewRedisIndex(redisClient)
		lastRead = chat.NewRedisLastRead(redisClient)
	} else {
		pickupIndex = matching.NewMemoryIndex()
		lastRead = chat.NewMemoryLastRead()
	}

	hub := stream.NewHub(log)
	emitters := events.Fanout{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		emitters = append(emitters, producer)
	}

	tripOpts := []trip.Option{
		trip.WithPickupIndex(pickupIndex),
		trip.WithEmitter(emitters),
		trip.WithLogger(log),
		trip.WithSearchWindow(cfg.Trip.SearchWindow),
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey)
		if err != nil {
			log.WithError(err).Fatal("maps client")
		}
		tripOpts = append(tripOpts, trip.WithGeocoder(geocoder))
	}
	tripSvc := trip.NewService(tripStore, profiles, tripOpts...)
	matchingSvc := matching.NewService(tripSvc, pickupIndex)
	chatSvc := chat.NewService(chatStore, lastRead, tripSvc, profiles, hub, emitters, log)

	var verifier infra.TokenVerifier
	if cfg.Firebase.ProjectID != "" {
		verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("firebase init")
		}
	} else {
		log.Warn("no firebase project configured, trusting X-User-ID header")
	}

	go tripSvc.RunExpirySweeper(ctx, cfg.Trip.SweepInterval)

	if cfg.MQTT.Broker != "" {
		ingest := stream.NewMQTTIngest(cfg.MQTT.Broker, cfg.MQTT.Topic, tripSvc, log)
		go func() {
			if err := ingest.Start(ctx); err != nil {
				log.WithError(err).Error("mqtt ingest stopped")
			}
		}()
	}

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Trips:    tripSvc,
		Matcher:  matchingSvc,
		Chat:     chatSvc,
		Hub:      hub,
		Profiles: profiles,
		Verifier: verifier,
		Log:      log,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server")
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}
	return log
}
