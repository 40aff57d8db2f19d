package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/repsnrecord/apiserver/config"
	"github.com/repsnrecord/apiserver/internal/db"
	"github.com/repsnrecord/apiserver/internal/handlers"
	appmw "github.com/repsnrecord/apiserver/internal/middleware"
	"github.com/repsnrecord/apiserver/internal/mq"
	"github.com/repsnrecord/apiserver/internal/services"
	"github.com/repsnrecord/apiserver/internal/storage"
	"github.com/repsnrecord/apiserver/internal/store"
)

// Server wraps the HTTP server and its owned connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mongo      *mongo.Database
	notifier   *mq.Notifier
}

// New constructs a Server: opens the data stores, wires repositories into
// services and handlers, and assembles the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mongoDB, err := db.OpenMongo(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objects, err := newObjectStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure photo bucket: %w", err)
	}

	notifier, err := newNotifier(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	roleRepo := store.NewRoleRepository(dbConn)
	prefsRepo := store.NewPreferencesRepository(dbConn)
	permRepo := store.NewPermissionRepository(dbConn)
	linkRepo := store.NewTrainerClientRepository(dbConn)
	connRepo := store.NewConnectionRepository(dbConn)
	shareRepo := store.NewSharedExportRepository(dbConn)
	recordRepo := store.NewRecordRepository(dbConn)
	photoRepo := store.NewPhotoRepository(dbConn)
	aggRepo := store.NewAggregateRepository(dbConn)
	searchRepo := store.NewSearchRepository(dbConn)
	workoutRepo := store.NewWorkoutRepository(mongoDB)

	userService := services.NewUserService(userRepo, roleRepo, prefsRepo)
	recordService := services.NewRecordService(recordRepo)
	statsService := services.NewStatsService(workoutRepo, aggRepo)
	photoService := services.NewPhotoService(photoRepo, objects)
	exportService := services.NewExportService(workoutRepo, photoRepo, roleRepo, permRepo, services.NewHTTPPhotoFetcher())
	trainerService := services.NewTrainerService(
		linkRepo, roleRepo, permRepo, connRepo, shareRepo, workoutRepo, photoRepo, searchRepo, notifier,
	)

	resolver := handlers.NewIdentityResolver(cfg.JWTSecret, cfg.IsProduction())
	exportLimiter := appmw.NewRateLimiter(10, time.Minute, 3)
	uploadLimiter := appmw.NewRateLimiter(30, time.Minute, 10)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, resolver, cfg.JWTSecret)
	})
	router.Group(func(r chi.Router) {
		handlers.WorkoutRouter(r, workoutRepo, resolver)
	})
	router.Group(func(r chi.Router) {
		handlers.StatsRouter(r, statsService, resolver)
	})
	router.Group(func(r chi.Router) {
		handlers.UserRouter(r, userService, trainerService, resolver)
	})
	router.Route("/personal-records", func(r chi.Router) {
		handlers.RecordRouter(r, recordService, resolver)
	})
	router.Route("/photos", func(r chi.Router) {
		handlers.PhotoRouter(r, photoService, resolver, appmw.Limit(uploadLimiter))
	})
	router.Route("/trainer", func(r chi.Router) {
		handlers.TrainerRouter(r, trainerService, resolver)
	})
	router.Route("/connections", func(r chi.Router) {
		handlers.ConnectionRouter(r, trainerService, resolver)
	})
	router.With(appmw.Limit(exportLimiter)).Route("/export", func(r chi.Router) {
		handlers.ExportRouter(r, exportService, resolver)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mongo:      mongoDB,
		notifier:   notifier,
	}, nil
}

func newObjectStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	case "minio", "":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newNotifier returns a nil Notifier when no broker is configured; a nil
// Notifier drops events.
func newNotifier(ctx context.Context, cfg config.Config) (*mq.Notifier, error) {
	switch cfg.MQ.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.NewNotifier(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.NewNotifier(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mongo != nil {
		_ = s.mongo.Client().Disconnect(context.Background())
	}
	_ = s.notifier.Close()
	return s.httpServer.Close()
}
