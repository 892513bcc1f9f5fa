// Package app owns one instance of every client-side state structure and
// wires them to a storage backend and the learning API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-learn/internal/auth"
	"github.com/mind-engage/mindengage-learn/internal/config"
	"github.com/mind-engage/mindengage-learn/internal/db"
	"github.com/mind-engage/mindengage-learn/internal/intent"
	"github.com/mind-engage/mindengage-learn/internal/migration"
	"github.com/mind-engage/mindengage-learn/internal/progress"
	"github.com/mind-engage/mindengage-learn/internal/quiz"
	"github.com/mind-engage/mindengage-learn/internal/quizapi"
	"github.com/mind-engage/mindengage-learn/internal/quizsession"
	"github.com/mind-engage/mindengage-learn/internal/storage"
)

var ErrNotSignedIn = errors.New("app: token does not carry a valid session")

type App struct {
	logger *zap.Logger

	Storage    *storage.Adapter
	Tokens     *auth.TokenStore
	API        *quizapi.Client
	Quiz       *quiz.Service
	Sessions   *quizsession.Manager
	Guest      *progress.GuestStore
	Remote     *progress.RemoteStore
	Progress   *progress.Unifier
	Tracker    *progress.Tracker
	Migrations *migration.AutoMigrator
	Intents    *intent.Manager

	// Legacy is the report of the one-time legacy key migration run by New.
	Legacy migration.Report

	watcher *migration.Watcher
	closers []func() error
}

type options struct {
	logger   *zap.Logger
	registry prometheus.Registerer
	hc       *http.Client
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option             { return func(o *options) { o.logger = l } }
func WithRegistry(r prometheus.Registerer) Option { return func(o *options) { o.registry = r } }
func WithHTTPClient(hc *http.Client) Option       { return func(o *options) { o.hc = hc } }

// New builds the state layer described by cfg and runs the legacy key
// migration once.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.hc == nil {
		o.hc = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	a := &App{logger: o.logger}

	store, err := a.openStorage(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	a.Storage = store
	a.Tokens = auth.NewTokenStore(store)

	a.API = quizapi.New(cfg.APIBaseURL,
		quizapi.WithHTTPClient(o.hc),
		quizapi.WithToken(a.Tokens.Token),
		quizapi.WithLogger(o.logger.Named("api")))

	a.Sessions = quizsession.NewManager(store,
		quizsession.WithDebounce(cfg.DebounceWindow),
		quizsession.WithLogger(o.logger.Named("quizsession")))
	persister := quizsession.NewPersister(ctx, a.Sessions)

	qs := quiz.NewStore(nil)
	qs.Use(persister.Effect)
	a.Quiz = quiz.NewService(qs, a.API,
		quiz.WithSessionStore(persister),
		quiz.WithSubmitTimeout(cfg.SubmitTimeout),
		quiz.WithLogger(o.logger.Named("quiz")))

	a.Legacy = migration.NewMigrator(store, o.logger.Named("migration")).RunOnce(ctx)

	a.Guest = progress.NewGuestStore(store)
	a.Remote = progress.NewRemoteStore(a.API,
		progress.WithCacheTTL(cfg.ProgressCacheTTL),
		progress.WithLogger(o.logger.Named("progress")))
	a.Progress = progress.NewUnifier(a.Guest, a.Remote, a.Tokens)
	a.Tracker = progress.NewTracker(a.Remote)
	a.Migrations = migration.NewAutoMigrator(store, a.Guest, a.Remote, o.logger.Named("migration"))
	a.watcher = migration.NewWatcher(a.Migrations, a.Guest)

	a.Intents = intent.NewManager(store,
		intent.WithMaxAge(cfg.IntentMaxAge),
		intent.WithLogger(o.logger.Named("intent")))
	return a, nil
}

func (a *App) openStorage(ctx context.Context, cfg config.Config, o options) (*storage.Adapter, error) {
	var local, session storage.Backend
	switch cfg.StorageDriver {
	case config.StorageDisabled:
		return storage.Unavailable(), nil
	case config.StorageMemory, "":
		local, session = storage.NewMemoryBackend(), storage.NewMemoryBackend()
	case config.StorageSQL:
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open storage db: %w", err)
		}
		a.closers = append(a.closers, dbh.Close)
		local = storage.NewSQLBackend(dbh, storage.AreaLocal)
		session = storage.NewSQLBackend(dbh, storage.AreaSession)
	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		local = storage.NewRedisBackend(rdb, cfg.StoragePrefix, storage.AreaLocal, 0)
		session = storage.NewRedisBackend(rdb, cfg.StoragePrefix, storage.AreaSession, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	sealer, err := storage.NewSealer(cfg.SecurePassphrase)
	if err != nil {
		return nil, fmt.Errorf("storage sealer: %w", err)
	}
	return storage.NewAdapter(local, session,
		storage.WithSealer(sealer),
		storage.WithBatchSize(cfg.QueueBatchSize),
		storage.WithMetrics(storage.NewMetrics(o.registry)),
		storage.WithLogger(o.logger.Named("storage"))), nil
}

// SignInResult reports what happened after a token was accepted.
type SignInResult struct {
	Session   auth.Session
	Migration *migration.Result // set when guest progress was migrated
	Navigated bool              // a stored intent was executed
}

// SignIn stores tok, migrates guest progress for a first-time user and
// resumes the intent stored before the login redirect. nav may be nil.
func (a *App) SignIn(ctx context.Context, tok string, nav intent.Navigator) (SignInResult, error) {
	s := auth.SessionFromToken(tok, time.Now())
	if !s.Authenticated() {
		return SignInResult{}, ErrNotSignedIn
	}
	if !a.Tokens.SetToken(ctx, tok) {
		return SignInResult{}, errors.New("app: token not stored")
	}
	a.Remote.Reset()

	out := SignInResult{Session: s}
	if res, ran := a.watcher.Observe(ctx, s); ran {
		out.Migration = &res
	}
	if nav != nil {
		ok, err := a.Intents.Execute(ctx, nav)
		if err != nil {
			return out, fmt.Errorf("resume intent: %w", err)
		}
		out.Navigated = ok
	}
	a.logger.Info("signed in",
		zap.String("user", s.UserID),
		zap.Bool("migrated", out.Migration != nil && out.Migration.Success),
		zap.Bool("navigated", out.Navigated))
	return out, nil
}

// SignOut forgets the token and every cached server state.
func (a *App) SignOut(ctx context.Context) {
	a.Tokens.Clear(ctx)
	a.Tracker.Close()
	a.Remote.Reset()
	a.watcher.Observe(ctx, auth.Guest())
}

// Close writes pending sessions, drains the storage queue and releases the
// backend connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	a.Tracker.Close()
	if err := a.Sessions.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Storage.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
