package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/attendance/internal/app/controllers"
	appMigrations "github.com/yigit/attendance/internal/app/migrations"
	appRepos "github.com/yigit/attendance/internal/app/repositories"
	appRoutes "github.com/yigit/attendance/internal/app/routes"
	appServices "github.com/yigit/attendance/internal/app/services"
	"github.com/yigit/attendance/internal/config"
	"github.com/yigit/attendance/internal/db"
	appMiddleware "github.com/yigit/attendance/internal/middleware"
	pkgAuth "github.com/yigit/attendance/internal/pkg/auth"
	"github.com/yigit/attendance/internal/pkg/cache"
	"github.com/yigit/attendance/internal/pkg/helpers"
	"github.com/yigit/attendance/internal/pkg/logger"
	"github.com/yigit/attendance/internal/pkg/metrics"
	"github.com/yigit/attendance/internal/pkg/qrcode"
	"github.com/yigit/attendance/internal/pkg/tokengen"
	"github.com/yigit/attendance/internal/pkg/websocket"
	"github.com/yigit/attendance/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Hub            *websocket.Hub
	Metrics        *metrics.Metrics
	Controllers    appRoutes.Controllers
	Limits         appRoutes.Limits
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
// CONFIG_PATH overrides the default configs/config.yaml.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase connects to PostgreSQL, applies pending migrations and seeds
// the default admin account.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(dbPool, lgr.With().Str("component", "migrator").Logger())
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	_, err = seed.EnsureAdmin(ctx, appRepos.NewAccountRepository(dbPool), seed.AdminCredentials{
		Username: cfg.Seed.AdminUsername,
		Password: cfg.Seed.AdminPassword,
	}, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to seed admin account, proceeding anyway...")
	}

	return dbPool, nil
}

// SetupRedis connects to redis when enabled. A nil client means rate limits
// are kept in process memory.
func SetupRedis(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, using in-memory rate limits")
		return nil, nil
	}
	client, err := cache.NewRedis(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	return client, nil
}

func newLimiter(client *redis.Client, scope string, perMinute int) appMiddleware.Limiter {
	if client != nil {
		return appMiddleware.NewRedisLimiter(client, scope, perMinute)
	}
	return appMiddleware.NewMemoryLimiter(perMinute)
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, redisClient *redis.Client, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)
	deps.Metrics = metrics.NewDefault()
	deps.Hub = websocket.NewHub(logger.Component("checkin-feed"))

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 8*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.Services = appServices.NewServices(appServices.Dependencies{
		Repos:     deps.Repos,
		JWT:       deps.JWTService,
		Generator: tokengen.NewRandomGenerator(cfg.QR.TokenLength),
		Renderer:  qrcode.NewRenderer(cfg.Server.PublicBaseURL, cfg.QR.ImageSize),
		Notifier:  deps.Hub,
		Metrics:   deps.Metrics,
		QrPolicy: appServices.QrPolicy{
			DefaultValidityMinutes: cfg.QR.DefaultValidityMinutes,
			MaxValidityMinutes:     cfg.QR.MaxValidityMinutes,
		},
		AuthPolicy: appServices.AuthPolicy{
			AllowAdminSignup:  cfg.Auth.AllowAdminSignup,
			AllowLinkedSignup: cfg.Auth.AllowLinkedSignup,
		},
		Logger: lgr,
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Services.AuthService)

	checks := map[string]func(context.Context) error{
		"postgres": dbPool.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	svc := deps.Services
	deps.Controllers = appRoutes.Controllers{
		Auth:       appControllers.NewAuthController(svc.AuthService, logger.Component("auth")),
		Roster:     appControllers.NewRosterController(svc.RosterService, logger.Component("roster")),
		Attendance: appControllers.NewAttendanceController(svc.AttendanceService, logger.Component("attendance")),
		Qr:         appControllers.NewQrController(svc.QrTokenService, logger.Component("qr")),
		Stats:      appControllers.NewStatsController(svc.StatsService, checks),
		Feed:       websocket.NewHandler(deps.Hub, svc.QrTokenService, logger.Component("checkin-feed")),
	}
	deps.Limits = appRoutes.Limits{
		Login:  newLimiter(redisClient, "login", cfg.RateLimit.LoginPerMinute),
		Redeem: newLimiter(redisClient, "redeem", cfg.RateLimit.RedeemPerMinute),
	}

	return deps, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", appMiddleware.RequestIDKey},
		ExposeHeaders: []string{appMiddleware.RequestIDKey},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.AllowedOrigins()
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(),
		appMiddleware.RequestLogger(logger.Component("http")),
		deps.Metrics.GinMiddleware(),
		cors.New(corsConfig(cfg)),
	)

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.Limits)

	return router, nil
}
