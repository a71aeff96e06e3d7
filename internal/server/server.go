package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/traceguard/backend/internal/clients"
	"github.com/traceguard/backend/internal/queue"
	mid "github.com/traceguard/backend/internal/server/middleware"
	"github.com/traceguard/backend/internal/storage"
	"github.com/traceguard/backend/internal/util"
	"github.com/traceguard/backend/pkg/assess"
	"github.com/traceguard/backend/pkg/chain"
	"github.com/traceguard/backend/pkg/leaselock"
	"github.com/traceguard/backend/pkg/logger"
	"github.com/traceguard/backend/pkg/resolve"
	"github.com/traceguard/backend/pkg/sanctions"
	"github.com/traceguard/backend/pkg/trust"
	pgxstore "github.com/traceguard/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func runMigrations(databaseURL string) {
	source := util.GetEnvString("MIGRATIONS_SOURCE", "file://migrations")
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		logger.Fatal("Failed to open migrations", "err", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	runMigrations(databaseURL)

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	st := pgxstore.NewStorageWithConnection(conn)
	trustDefaults, err := trust.LoadDefaults(util.GetEnvString("TRUST_MODEL_FILE", "configs/trustmodel.yaml"))
	if err != nil {
		logger.Fatal("Failed to load trust model defaults", "err", err)
	}

	resolver := resolve.NewService(st)
	matcher := sanctions.NewMatcher(st)
	engine := trust.NewEngine(st, trustDefaults)

	// Optional collaborators; a nil concrete pointer must not end up behind
	// a non-nil interface value.
	var export assess.ExportControlEvaluator
	if c := clients.NewExportControlClient(); c != nil {
		export = c
	}
	var news assess.NewsProvider
	if c := clients.NewNewsClient(); c != nil {
		news = c
	}

	masterAPIKey := util.GetEnv("MASTER_API_KEY")
	masterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 64)
	masterUserRole := util.GetEnv("MASTER_USER_ROLE")

	app := &mid.App{
		DBConn: conn,
		Queue:  ch,
		Key:    &k,
		S3:     s3,

		Store:    st,
		Resolver: resolver,
		Matcher:  matcher,
		Engine:   engine,
		Assessor: assess.NewService(st, matcher, engine, resolver, export, news),
		Chains:   chain.NewBuilder(st),
		Locks:    leaselock.New(conn),

		MasterAPIKey:   masterAPIKey,
		MasterUserID:   masterUserID,
		MasterUserRole: masterUserRole,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
