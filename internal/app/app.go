package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/manavault/internal/cart"
	"github.com/five82/manavault/internal/collection"
	"github.com/five82/manavault/internal/config"
	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/notify"
	"github.com/five82/manavault/internal/session"
	"github.com/five82/manavault/internal/shop"
	"github.com/five82/manavault/internal/state"
	"github.com/five82/manavault/internal/tiercache"
	"github.com/five82/manavault/internal/ui"
	"github.com/five82/manavault/internal/view"
)

// Options configure the manavault application. Non-zero fields override the
// config file and environment.
type Options struct {
	ConfigPath   string
	EnvFile      string // empty loads ./.env when present
	APIURL       string
	CachePath    string
	RefreshEvery int // seconds
}

// Services is the object graph of one application session.
type Services struct {
	Config     config.Config
	Logger     *zap.Logger
	Cache      kvstore.Store
	API        *market.Client
	Store      *state.Store
	Session    *session.Manager
	Cart       *cart.Manager
	Collection *collection.Manager
	Notify     *notify.Center
	Shop       *shop.Service
	View       *view.Controller

	closers []func() error
}

// Run boots the manavault TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOptions(&cfg, opts)

	logger, err := logging.New(cfg.LogPath, cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("manavault starting", zap.String("api", cfg.APIURL), zap.String("cache", cfg.CachePath))

	svc, err := Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("close services", zap.Error(err))
		}
	}()

	svc.Start(ctx)

	// Populate from the network before the first frame; the refresher
	// takes over afterwards.
	if err := svc.Shop.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", zap.Error(err))
	}
	StartPoller(ctx, svc.Shop, cfg.RefreshInterval, logger)

	return ui.Run(ui.Options{
		Context:    ctx,
		Cache:      svc.Cache,
		Store:      svc.Store,
		Session:    svc.Session,
		Cart:       svc.Cart,
		Collection: svc.Collection,
		Notify:     svc.Notify,
		Shop:       svc.Shop,
		View:       svc.View,
		Logger:     logger,
		LogPath:    cfg.LogPath,
		ThemeName:  cfg.Theme,
		PollTick:   time.Second,
	})
}

func applyOptions(cfg *config.Config, opts Options) {
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.CachePath != "" {
		cfg.CachePath = opts.CachePath
	}
	if opts.RefreshEvery > 0 {
		cfg.RefreshInterval = time.Duration(opts.RefreshEvery) * time.Second
	}
}

// Build constructs every service. An unusable cache database degrades to an
// in-memory store.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Services, error) {
	logger = logging.OrNop(logger)
	s := &Services{Config: cfg, Logger: logger}

	cache, err := kvstore.OpenSQLite(ctx, cfg.CachePath)
	if err != nil {
		logger.Warn("cache unavailable, using memory", zap.String("path", cfg.CachePath), zap.Error(err))
		s.Cache = kvstore.NewMemory()
	} else {
		s.Cache = cache
		s.closers = append(s.closers, cache.Close)
	}

	client, err := market.NewClient(cfg.APIURL, market.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init market client: %w", err)
	}
	s.API = client

	s.Store = &state.Store{}
	s.Session = session.New(client, s.Cache, logger.Named("session"))
	s.Cart = cart.New(client, logger.Named("cart"))
	s.Collection = collection.New(client, s.Cache, logger.Named("collection"))
	s.Notify = notify.New(client, logger.Named("notify"))
	s.Shop = shop.New(shop.Deps{
		API:        client,
		Store:      s.Store,
		Cache:      s.Cache,
		Memory:     tiercache.NewMemory(0),
		Cart:       s.Cart,
		Collection: s.Collection,
		Notify:     s.Notify,
		Logger:     logger.Named("shop"),
	})
	s.View = view.New(s.Cache, logger.Named("view"))
	return s, nil
}

// Start wires the session listeners, restores a cached session and
// publishes the cached storefront. It does not touch the network beyond
// what a restored session loads.
func (s *Services) Start(ctx context.Context) {
	s.Session.OnChange(s.onSessionChange)
	s.Shop.Seed(ctx)
	authenticated := s.Session.Restore(ctx)
	s.View.Restore(ctx, authenticated)
}

// onSessionChange loads the per-user state on sign-in and drops it on
// sign-out.
func (s *Services) onSessionChange(ctx context.Context, user market.User, authenticated bool) {
	if !authenticated {
		s.Cart.Reset()
		s.Collection.Reset()
		s.Notify.Reset()
		s.View.SignedOut()
		return
	}
	if err := s.Cart.Load(ctx, user.ID); err != nil {
		s.Logger.Warn("load cart", zap.String("user", user.ID), zap.Error(err))
	}
	if err := s.Collection.Load(ctx, user.ID); err != nil {
		s.Logger.Warn("load collection", zap.String("user", user.ID), zap.Error(err))
	}
	s.Collection.SyncWithCatalog(ctx, s.Store.Snapshot().Catalog)
	if err := s.Notify.Fetch(ctx, user.ID); err != nil {
		s.Logger.Warn("load notifications", zap.String("user", user.ID), zap.Error(err))
	}
}

// Close releases the cache database.
func (s *Services) Close() error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
