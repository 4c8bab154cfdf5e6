package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	session "github.com/clipstream/go-session"
	"github.com/clipstream/go-session/cmd/server/config"
	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	repo     session.RepositoryManager
	manager  *session.Lifecycle
	sessions *session.RouteSessions
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithSessions(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*session.Account)(nil))

	cfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))
	migrationsFS, err := fs.Sub(session.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(context.Background()); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = session.NewRepositoryManager(client.DB())

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Get("/healthz", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
	})

	app.srv = srv

	return nil
}

// printfLogger bridges the structured glog logger to the printf surface the
// session package logs through. The session side formats first, so the
// structured logger receives a single message and no stray attribute pairs.
type printfLogger struct {
	lgr glog.Logger
}

func (p printfLogger) Debug(format string, args ...any) { p.lgr.Debug(fmt.Sprintf(format, args...)) }
func (p printfLogger) Info(format string, args ...any)  { p.lgr.Info(fmt.Sprintf(format, args...)) }
func (p printfLogger) Warn(format string, args ...any)  { p.lgr.Warn(fmt.Sprintf(format, args...)) }
func (p printfLogger) Error(format string, args ...any) { p.lgr.Error(fmt.Sprintf(format, args...)) }

func WithSessions(ctx context.Context, app *App) error {
	cfg := app.Config().GetSession()

	if err := app.repo.Validate(); err != nil {
		return err
	}

	store := session.NewAccountStore(app.repo.Accounts())

	manager := session.NewLifecycle(store, cfg).
		WithLogger(printfLogger{app.GetLogger("session")})

	sessions, err := session.NewHTTPSessions(manager, cfg)
	if err != nil {
		return err
	}
	sessions.Logger = printfLogger{app.GetLogger("session:http")}

	controller := session.NewHTTPController(sessions, app.repo, cfg).
		WithLogger(printfLogger{app.GetLogger("session:ctrl")})

	controller.RegisterRoutes(app.srv.Router().Group("/auth"))

	app.manager = manager
	app.sessions = sessions

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
