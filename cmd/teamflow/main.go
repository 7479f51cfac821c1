package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/derived"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/gateway"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/invite"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/config"
	infraauth "github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/auth"
	httprouter "github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http/handlers"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/http/middleware"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/persistence/memory"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/persistence/postgres"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/queue"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/webhook"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()

	var (
		pool     *pgxpool.Pool
		orgs     ports.OrganizationRepository
		members  ports.MembershipRepository
		projects ports.ProjectRepository
		tasks    ports.TaskRepository
	)
	if cfg.Database.URL != "" {
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to database")
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("ping database")
		}
		orgs = postgres.NewOrganizationRepository(pool)
		members = postgres.NewMembershipRepository(pool)
		projects = postgres.NewProjectRepository(pool)
		tasks = postgres.NewTaskRepository(pool)
	} else {
		log.Warn().Msg("DATABASE_URL not set; using in-memory store")
		store := memory.NewStore()
		orgs = store
		members = store
		projects = store.Projects()
		tasks = store.Tasks()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	var emitter ports.NotificationEmitter
	if cfg.Webhook.URL != "" {
		opts := []webhook.HTTPEmitterOption{}
		if cfg.Webhook.AuthToken != "" {
			opts = append(opts, webhook.WithHeader("Authorization", "Bearer "+cfg.Webhook.AuthToken))
		}
		emitter = webhook.NewHTTPEmitter(cfg.Webhook.URL, opts...)
	} else {
		emitter = webhook.NewNoopEmitter()
	}

	maintainer := derived.NewMaintainer(projects, tasks, members)

	var publisher ports.MutationPublisher
	var worker *queue.Worker
	if redisClient != nil {
		redisOpt, _ := redis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqPub := queue.NewAsynqPublisher(asynqOpt, log)
		defer asynqPub.Close()
		publisher = asynqPub
		worker = queue.NewWorker(asynqOpt, maintainer, emitter, log)
		go func() {
			if err := worker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		publisher = queue.NewSyncPublisher(maintainer, emitter, log)
	}

	engine := authz.NewEngine(projects)
	invites := invite.NewService(orgs, members)
	gw := gateway.New(orgs, members, projects, tasks, engine, invites, publisher)

	if cfg.JWT.PublicKeyPath == "" {
		log.Fatal().Msg("JWT_PUBLIC_KEY_PATH is required")
	}
	publicKey, err := infraauth.LoadRSAPublicKey(cfg.JWT.PublicKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load JWT public key")
	}
	verifier := infraauth.NewTokenVerifier(publicKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	resolver := authz.NewResolver(members)
	requirePrincipal := middleware.NewPrincipalResolver(verifier, resolver).Handler

	ipLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.PerIP)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}
	userLimit, err := middleware.NewUserRateLimiter(cfg.RateLimit.PerUser)
	if err != nil {
		log.Fatal().Err(err).Msg("create user rate limiter")
	}
	secureMiddleware := middleware.NewSecure(middleware.SecureOptions(cfg.Server.Development))
	var corsMiddleware func(http.Handler) http.Handler
	if cfg.Server.AllowedOrigins != "" {
		corsMiddleware = middleware.CORS(strings.Split(cfg.Server.AllowedOrigins, ","), nil, nil)
	}

	router := httprouter.NewRouter(httprouter.RouterConfig{
		Organizations:    handlers.NewOrganizationsHandler(gw),
		Projects:         handlers.NewProjectsHandler(gw),
		Tasks:            handlers.NewTasksHandler(gw),
		Dashboard:        handlers.NewDashboardHandler(maintainer, engine),
		Health:           handlers.NewHealthHandler(pool, redisClient),
		RequirePrincipal: requirePrincipal,
		Log:              log,
		Secure:           secureMiddleware,
		CORS:             corsMiddleware,
		IPRateLimit:      ipLimit,
		UserRateLimit:    userLimit,
		Metrics:          true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	if worker != nil {
		worker.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("stopped")
}
