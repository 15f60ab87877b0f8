package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	universys "github.com/universys/universyslite"
	appControllers "github.com/universys/universyslite/internal/app/controllers"
	appMigrations "github.com/universys/universyslite/internal/app/migrations"
	appRepos "github.com/universys/universyslite/internal/app/repositories"
	appRoutes "github.com/universys/universyslite/internal/app/routes"
	appServices "github.com/universys/universyslite/internal/app/services"
	"github.com/universys/universyslite/internal/config"
	"github.com/universys/universyslite/internal/db"
	appMiddleware "github.com/universys/universyslite/internal/middleware"
	pkgAuth "github.com/universys/universyslite/internal/pkg/auth"
	"github.com/universys/universyslite/internal/pkg/cache"
	"github.com/universys/universyslite/internal/pkg/email"
	"github.com/universys/universyslite/internal/pkg/logger"
	"github.com/universys/universyslite/internal/pkg/metrics"
	"github.com/universys/universyslite/internal/pkg/validation"
	"github.com/universys/universyslite/internal/seed"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos          *appRepos.Repositories
	Redis          *redis.Client // nil when caching is disabled
	Cache          cache.Cache
	Metrics        *metrics.Metrics
	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection pool.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database.Pool, nil
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, lgr zerolog.Logger) error {
	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(pool, universys.Migrations, "migrations", lgr)
	applied, err := migrator.Up(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return nil
}

// SeedDefaults creates the default departments, admin and term.
func SeedDefaults(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, lgr zerolog.Logger) error {
	opts := seed.Options{
		AdminEmail:    cfg.Seed.AdminEmail,
		AdminPassword: cfg.Seed.AdminPassword,
	}
	return seed.CreateDefaultData(ctx, appRepos.NewRepositories(pool), opts, lgr)
}

// SetupCache connects to Redis when enabled and falls back to a no-op cache.
func SetupCache(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (cache.Cache, *redis.Client, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, caching turned off")
		return cache.NoopCache{}, nil, nil
	}

	redisCfg := cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      config.Duration(cfg.Redis.CacheTTL),
	}
	client, err := cache.NewRedisClient(ctx, redisCfg)
	if err != nil {
		lgr.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		return nil, nil, err
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	return cache.NewRedisCache(client, redisCfg), client, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	var err error
	deps.Cache, deps.Redis, err = SetupCache(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up cache: %w", err)
	}

	deps.Repos = appRepos.NewRepositories(dbPool)
	deps.Metrics = metrics.New()
	tx := db.NewTransactor(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.Duration(cfg.JWT.AccessTokenExpiration),
		RefreshTokenExp: config.Duration(cfg.JWT.RefreshTokenExpiration),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	notifier := email.NewSMTPNotifier(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.From,
	}, lgr)

	r := deps.Repos
	auditService := appServices.NewAuditService(r.AuditRepository, lgr)

	authService := appServices.NewAuthService(r.UserRepository, r.TokenRepository, deps.JWTService, tx, auditService, lgr)
	departmentService := appServices.NewDepartmentService(r.DepartmentRepository, tx, auditService)
	studentService := appServices.NewStudentService(r.StudentRepository, r.DepartmentRepository, r.UserRepository, tx, auditService, lgr)
	instructorService := appServices.NewInstructorService(r.InstructorRepository, r.DepartmentRepository, r.UserRepository, tx, auditService)
	courseService := appServices.NewCourseService(r.CourseRepository, r.DepartmentRepository, deps.Cache, tx, auditService, lgr)
	termService := appServices.NewTermService(r.TermRepository, tx, auditService)
	roomService := appServices.NewRoomService(r.RoomRepository, tx, auditService)
	schedulingService := appServices.NewSchedulingService(r.MeetingRepository, r.RoomRepository, r.SectionRepository, r.InstructorRepository, tx, auditService)

	sectionService := appServices.NewSectionService(appServices.SectionDeps{
		Sections:                r.SectionRepository,
		Courses:                 r.CourseRepository,
		Terms:                   r.TermRepository,
		Instructors:             r.InstructorRepository,
		Meetings:                r.MeetingRepository,
		Enrollments:             r.EnrollmentRepository,
		Students:                r.StudentRepository,
		Notifier:                notifier,
		Metrics:                 deps.Metrics,
		Tx:                      tx,
		Audit:                   auditService,
		DefaultWaitlistCapacity: cfg.Registration.DefaultWaitlistCapacity,
	}, lgr)

	enrollmentService := appServices.NewEnrollmentService(appServices.EnrollmentDeps{
		Enrollments:       r.EnrollmentRepository,
		Sections:          r.SectionRepository,
		Students:          r.StudentRepository,
		Terms:             r.TermRepository,
		Courses:           r.CourseRepository,
		Meetings:          r.MeetingRepository,
		Instructors:       r.InstructorRepository,
		Notifier:          notifier,
		Metrics:           deps.Metrics,
		Tx:                tx,
		Audit:             auditService,
		MaxCreditsPerTerm: cfg.Registration.MaxCreditsPerTerm,
	}, lgr)

	gradingService := appServices.NewGradingService(appServices.GradingDeps{
		Enrollments: r.EnrollmentRepository,
		Sections:    r.SectionRepository,
		Students:    r.StudentRepository,
		Instructors: r.InstructorRepository,
		Cache:       deps.Cache,
		Tx:          tx,
		Audit:       auditService,
	}, lgr)

	billingService := appServices.NewBillingService(appServices.BillingDeps{
		Invoices:    r.InvoiceRepository,
		Enrollments: r.EnrollmentRepository,
		Students:    r.StudentRepository,
		Terms:       r.TermRepository,
		Notifier:    notifier,
		Metrics:     deps.Metrics,
		Tx:          tx,
		Audit:       auditService,
		Rates:       cfg.Rates(),
	}, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.Controllers = appRoutes.Controllers{
		Auth:       appControllers.NewAuthController(authService, lgr),
		Department: appControllers.NewDepartmentController(departmentService),
		Student:    appControllers.NewStudentController(studentService),
		Instructor: appControllers.NewInstructorController(instructorService),
		Course:     appControllers.NewCourseController(courseService),
		Term:       appControllers.NewTermController(termService),
		Room:       appControllers.NewRoomController(roomService),
		Section:    appControllers.NewSectionController(sectionService),
		Scheduling: appControllers.NewSchedulingController(schedulingService),
		Enrollment: appControllers.NewEnrollmentController(enrollmentService),
		Grading:    appControllers.NewGradingController(gradingService),
		Billing:    appControllers.NewBillingController(billingService, lgr),
		Audit:      appControllers.NewAuditController(auditService),
	}

	return deps, nil
}

// redisPinger adapts the go-redis client to the health check interface.
type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := validation.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	// Metrics sits outside Recovery so recovered panics are counted as 500s.
	router.Use(
		appMiddleware.RequestLogger(lgr),
		appMiddleware.Metrics(deps.Metrics),
		appMiddleware.Recovery(),
	)

	pingers := map[string]appRoutes.Pinger{"postgres": dbPool}
	if deps.Redis != nil {
		pingers["redis"] = redisPinger{client: deps.Redis}
	}

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.Metrics, pingers)
	return router, nil
}
