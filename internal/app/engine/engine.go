// Package engine wires the adoption engine for a device: the local store, the
// REST client signed in with the device session, and the pets, terms, users
// and sponsor services with their observability decorators.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Apurer/pet-adoption-engine/internal/clients/http/adoption"
	petsmemory "github.com/Apurer/pet-adoption-engine/internal/domains/pets/adapters/memory"
	petsobs "github.com/Apurer/pet-adoption-engine/internal/domains/pets/adapters/observability"
	petsworkflows "github.com/Apurer/pet-adoption-engine/internal/domains/pets/adapters/workflows"
	petsapp "github.com/Apurer/pet-adoption-engine/internal/domains/pets/application"
	petsdomain "github.com/Apurer/pet-adoption-engine/internal/domains/pets/domain"
	petsports "github.com/Apurer/pet-adoption-engine/internal/domains/pets/ports"
	sponsorapp "github.com/Apurer/pet-adoption-engine/internal/domains/sponsor/application"
	sponsorports "github.com/Apurer/pet-adoption-engine/internal/domains/sponsor/ports"
	termscache "github.com/Apurer/pet-adoption-engine/internal/domains/terms/adapters/cache"
	termsobs "github.com/Apurer/pet-adoption-engine/internal/domains/terms/adapters/observability"
	termsparties "github.com/Apurer/pet-adoption-engine/internal/domains/terms/adapters/parties"
	termsapp "github.com/Apurer/pet-adoption-engine/internal/domains/terms/application"
	usersdevice "github.com/Apurer/pet-adoption-engine/internal/domains/users/adapters/device"
	usersobs "github.com/Apurer/pet-adoption-engine/internal/domains/users/adapters/observability"
	usersapp "github.com/Apurer/pet-adoption-engine/internal/domains/users/application"
	usersports "github.com/Apurer/pet-adoption-engine/internal/domains/users/ports"
	"github.com/Apurer/pet-adoption-engine/internal/platform/devicestore"
	platformobservability "github.com/Apurer/pet-adoption-engine/internal/platform/observability"
)

// Engine holds the services of one device.
type Engine struct {
	Store     devicestore.Store
	Client    *adoption.Client
	Session   usersports.Service
	Catalog   *petsmemory.Catalog
	Adoption  petsports.AdoptionService
	Favorites *petsapp.Favorites
	Listing   *petsapp.Listing
	Terms     *termsapp.Terms
	Sponsor   sponsorports.Gate

	logger  *slog.Logger
	closers []func() error
}

type options struct {
	instruments *platformobservability.Instruments
	presenter   sponsorports.Presenter
	store       devicestore.Store
	finalizer   petsports.StatusFinalizer
	clientOpts  []adoption.Option
}

type Option func(*options)

// WithInstruments supplies the process logger, tracer and meter providers.
func WithInstruments(instruments *platformobservability.Instruments) Option {
	return func(o *options) { o.instruments = instruments }
}

// WithPresenter enables the sponsor interstitial. Without one the gate is a no-op.
func WithPresenter(p sponsorports.Presenter) Option {
	return func(o *options) { o.presenter = p }
}

// WithDeviceStore bypasses DEVICE_STORE selection; the engine does not close it.
func WithDeviceStore(store devicestore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithFinalizer overrides the Temporal/inline status finalizer choice.
func WithFinalizer(f petsports.StatusFinalizer) Option {
	return func(o *options) { o.finalizer = f }
}

// WithClientOptions appends REST client options, e.g. a test transport.
func WithClientOptions(opts ...adoption.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New builds the engine from cfg. Close releases the store and Temporal client.
func New(ctx context.Context, cfg Config, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	logger := effectiveLogger(o.instruments)
	e := &Engine{logger: logger}

	store := o.store
	if store == nil {
		opened, err := OpenDeviceStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = opened
		e.closers = append(e.closers, opened.Close)
	}
	e.Store = store

	var session usersports.Service
	clientOpts := append([]adoption.Option{
		adoption.WithTimeout(cfg.APITimeout),
		adoption.WithLogger(logger),
		adoption.WithTokenSource(adoption.TokenFunc(func(ctx context.Context) (string, error) {
			return session.Token(ctx)
		})),
	}, o.clientOpts...)
	client, err := adoption.New(cfg.APIURL, clientOpts...)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Client = client

	session = usersobs.New(
		usersapp.NewService(usersdevice.NewSessionStore(store), client, usersapp.WithLogger(logger)),
		usersobs.WithLogger(logger),
		usersobs.WithTracer(o.instruments.Tracer("internal.users.application")),
		usersobs.WithMeter(o.instruments.Meter("internal.users.application")),
	)
	e.Session = session

	var gate sponsorports.Gate = sponsorapp.NoopGate{}
	if o.presenter != nil {
		gate = sponsorapp.NewInterstitial(o.presenter,
			sponsorapp.WithMaxWait(cfg.SponsorMaxWait),
			sponsorapp.WithLogger(logger),
			sponsorapp.WithMeter(o.instruments.Meter("internal.sponsor.application")),
		)
	}
	e.Sponsor = gate

	finalizer := o.finalizer
	if finalizer == nil {
		finalizer = e.buildFinalizer(cfg, o.instruments, client)
	}

	e.Catalog = petsmemory.NewCatalog(petsmemory.WithEventSink(func(ev petsdomain.Event) {
		logger.Debug("catalog event", slog.String("event", ev.EventName()), slog.Time("at", ev.OccurredAt()))
	}))
	gateway := termsobs.New(client,
		termsobs.WithLogger(logger),
		termsobs.WithTracer(o.instruments.Tracer("internal.terms.gateway")),
		termsobs.WithMeter(o.instruments.Meter("internal.terms.gateway")),
	)
	e.Terms = termsapp.NewTerms(gateway,
		termsparties.NewProfiles(session),
		termsparties.NewOwners(e.Catalog, client),
		termscache.NewSentCache(store),
		termsapp.WithSponsorGate(gate),
		termsapp.WithLogger(logger),
	)
	e.Adoption = petsobs.New(
		petsapp.NewOrchestrator(e.Catalog, client, client, finalizer, e.Terms,
			petsapp.WithSponsorGate(gate),
			petsapp.WithAdoptionLogger(logger),
		),
		petsobs.WithLogger(logger),
		petsobs.WithTracer(o.instruments.Tracer("internal.pets.application")),
		petsobs.WithMeter(o.instruments.Meter("internal.pets.application")),
	)
	e.Listing = petsapp.NewListing(e.Catalog, client, store)
	e.Favorites = petsapp.NewFavorites(e.Catalog, client, session,
		petsapp.WithResortDelay(cfg.FavoriteResortDelay),
		petsapp.WithFavoriteLogger(logger),
	)
	e.closers = append(e.closers, func() error { e.Favorites.Close(); return nil })

	return e, nil
}

func (e *Engine) buildFinalizer(cfg Config, instruments *platformobservability.Instruments, directory petsports.Directory) petsports.StatusFinalizer {
	temporalClient, err := DialTemporal(cfg, instruments, "client")
	if err != nil {
		e.logger.Warn("Temporal workflows unavailable, finalizing adoptions inline", slog.String("error", err.Error()))
		return petsworkflows.NewInlineFinalizer(directory)
	}
	e.closers = append(e.closers, func() error { temporalClient.Close(); return nil })
	e.logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	return petsworkflows.NewTemporalFinalizer(temporalClient, petsworkflows.WithWait(cfg.FinalizeWait))
}

// OpenDeviceStore opens the backend named by cfg.DeviceStore.
func OpenDeviceStore(ctx context.Context, cfg Config) (devicestore.Store, error) {
	switch cfg.DeviceStore {
	case DeviceStoreMemory:
		return devicestore.NewMemoryStore(), nil
	case DeviceStoreSQLite, "":
		store, err := devicestore.OpenSQLite(cfg.DeviceStorePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite device store: %w", err)
		}
		return store, nil
	case DeviceStoreRedis:
		store, err := devicestore.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis device store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown device store %q", cfg.DeviceStore)
	}
}

// Close releases resources in reverse order of acquisition.
func (e *Engine) Close() error {
	var err error
	for i := len(e.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, e.closers[i]())
	}
	e.closers = nil
	return err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
