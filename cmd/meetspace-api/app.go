package main

import (
	"context"
	"fmt"
	"slices"

	"meetspace-api/internal/access"
	"meetspace-api/internal/auth"
	"meetspace-api/internal/calendar"
	"meetspace-api/internal/config"
	"meetspace-api/internal/domain"
	"meetspace-api/internal/http/handler"
	"meetspace-api/internal/identity"
	"meetspace-api/internal/integrations/translation"
	"meetspace-api/internal/ledger"
	"meetspace-api/internal/meeting"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/recording"
	"meetspace-api/internal/repo"
	"meetspace-api/internal/service"
	"meetspace-api/internal/telemetry"
	"meetspace-api/internal/workspace"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// app is the wired domain: stores, services and their HTTP handlers.
type app struct {
	Directory *workspace.Directory
	Users     *identity.Store

	UserHandler      *handler.UserHandler
	WorkspaceHandler *handler.WorkspaceHandler
	MemberHandler    *handler.MemberHandler
	AccessHandler    *handler.AccessHandler
	MeetingHandler   *handler.MeetingHandler
}

type appDeps struct {
	Cfg   *config.Config
	Log   *logger.Logger
	Pool  *pgxpool.Pool // nil keeps every store in memory
	Redis redis.UniversalClient
	Prom  *telemetry.PromMetrics
}

func buildApp(ctx context.Context, deps appDeps) (*app, error) {
	registry := access.NewDefaultRegistry()
	if deps.Cfg.RolesFile != "" {
		if err := access.LoadRolesFile(registry, deps.Cfg.RolesFile); err != nil {
			return nil, err
		}
		deps.Log.Info(ctx, "roles file loaded", zap.String("path", deps.Cfg.RolesFile), zap.Int("roles", len(registry.Roles())))
	}

	var ledgerOpts []ledger.Option
	var userPersister identity.Persister
	dirOpts := []workspace.DirectoryOption{workspace.WithLogger(deps.Log)}
	svcOpts := []service.Option{service.WithLogger(deps.Log)}
	if deps.Prom != nil {
		svcOpts = append(svcOpts, service.WithMutationRecorder(deps.Prom))
	}
	if deps.Pool != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithCommitHook(repo.NewMembershipRepository(deps.Pool).CommitHook))
		userPersister = repo.NewUserRepository(deps.Pool)
		dirOpts = append(dirOpts, workspace.WithStore(repo.NewWorkspaceRepository(deps.Pool)))
		svcOpts = append(svcOpts, service.WithAudit(repo.NewAuditRepo(deps.Pool)))
	}

	l := ledger.New(ledgerOpts...)
	users := identity.NewStore(userPersister)
	dir := workspace.NewDirectory(l, registry, users, dirOpts...)

	var observer access.Observer
	if deps.Prom != nil {
		observer = deps.Prom
	}
	engine := access.NewEngine(registry, l, observer)

	var recorder meeting.RecordingStore = recording.NewMemoryStore()
	if deps.Redis != nil {
		recorder = recording.NewRedisStore(deps.Redis, deps.Cfg.RecordingMaxDuration())
	}
	var translator meeting.TranslationService
	if deps.Cfg.TranslationURL != "" {
		translator = translation.NewClient(deps.Cfg.TranslationURL)
	}
	meetings := meeting.NewRegistry(engine, recorder, translator)

	if deps.Pool != nil {
		if err := rehydrate(ctx, deps.Log, deps.Pool, users, dir); err != nil {
			return nil, err
		}
	}

	membership := service.NewMembershipService(dir, engine, meetings, svcOpts...)
	return &app{
		Directory:        dir,
		Users:            users,
		UserHandler:      handler.NewUserHandler(service.NewUserService(users, calendar.NewMemoryStore(), svcOpts...)),
		WorkspaceHandler: handler.NewWorkspaceHandler(membership),
		MemberHandler:    handler.NewMemberHandler(membership),
		AccessHandler:    handler.NewAccessHandler(membership),
		MeetingHandler:   handler.NewMeetingHandler(service.NewMeetingService(dir, meetings, svcOpts...)),
	}, nil
}

// rehydrate loads users and workspaces concurrently, then installs them.
func rehydrate(ctx context.Context, log *logger.Logger, pool *pgxpool.Pool, users *identity.Store, dir *workspace.Directory) error {
	var (
		storedUsers      []domain.User
		storedWorkspaces []repo.StoredWorkspace
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		storedUsers, err = repo.NewUserRepository(pool).ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		storedWorkspaces, err = repo.NewWorkspaceRepository(pool).ListWorkspaces(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}

	users.Restore(storedUsers)
	for _, sw := range storedWorkspaces {
		snap, err := ledger.NewSnapshot(sw.Info.ID, sw.Version, sw.Members, sw.Info.Status == domain.WorkspaceDeleted)
		if err != nil {
			return fmt.Errorf("rehydrate workspace %s: %w", sw.Info.ID, err)
		}
		if err := dir.Restore(sw.Info, snap); err != nil {
			return err
		}
	}

	log.Info(ctx, "state rehydrated",
		logger.Module("bootstrap"),
		zap.Int("users", users.Len()),
		zap.Int("workspaces", dir.Len()),
	)
	return nil
}

// buildResolver registers an HS256 validator for every allowed issuer and,
// when a public key is configured, an RS256 validator for the service issuer.
func buildResolver(cfg *config.Config) (*auth.KeyResolver, error) {
	secret, err := cfg.HS256Secret()
	if err != nil {
		return nil, err
	}

	issuers := cfg.GetAllowedIssuers()
	allowed := slices.Clone(issuers)
	if cfg.JWTPublicKeyRS256 != "" && !slices.Contains(allowed, cfg.JWTRS256Issuer) {
		allowed = append(allowed, cfg.JWTRS256Issuer)
	}

	keyStore := auth.NewKeyStore()
	resolver := auth.NewKeyResolver(allowed, []string{cfg.JWTAudience})
	for _, issuer := range issuers {
		keyStore.LoadHS256Key(issuer, "v1", secret)
		resolver.RegisterValidator(issuer, auth.NewHS256Validator(keyStore, issuer, cfg.ClockSkew()))
	}

	if cfg.JWTPublicKeyRS256 != "" {
		if err := keyStore.LoadRS256Key(cfg.JWTRS256Issuer, "v1", cfg.JWTPublicKeyRS256); err != nil {
			return nil, fmt.Errorf("load JWT_PUBLIC_KEY_RS256: %w", err)
		}
		resolver.RegisterValidator(cfg.JWTRS256Issuer, auth.NewRS256Validator(keyStore, cfg.JWTRS256Issuer, cfg.ClockSkew()))
	}
	return resolver, nil
}
