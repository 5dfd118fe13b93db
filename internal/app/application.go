package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	balancesvc "github.com/hotornot-games/wager-gateway/internal/app/services/balance"
	gatewaysvc "github.com/hotornot-games/wager-gateway/internal/app/services/gateway"
	sentimentsvc "github.com/hotornot-games/wager-gateway/internal/app/services/sentiment"
	"github.com/hotornot-games/wager-gateway/internal/app/storage"
	"github.com/hotornot-games/wager-gateway/internal/app/storage/memory"
	"github.com/hotornot-games/wager-gateway/internal/app/system"
	"github.com/hotornot-games/wager-gateway/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	Posts    storage.PostStore
	Games    storage.GameStore
}

// Config carries the wiring knobs for the outbound worker and the optional
// sentiment resolver.
type Config struct {
	// WorkerURL is the base URL of the settlement worker. Required.
	WorkerURL string

	// WorkerToken is a static bearer token for worker calls. Ignored when
	// ServiceSecret is set.
	WorkerToken string

	// ServiceSecret, when set, is used to mint short-lived HS256 service
	// tokens for worker calls instead of the static WorkerToken.
	ServiceSecret string

	// ServiceID is the issuer/subject claim for minted service tokens.
	ServiceID string

	SentimentURL    string
	SentimentKey    string
	SentimentPolicy gatewaysvc.SentimentPolicy
}

// Normalize trims whitespace and applies defaults.
func (c *Config) Normalize() {
	c.WorkerURL = strings.TrimSpace(c.WorkerURL)
	c.WorkerToken = strings.TrimSpace(c.WorkerToken)
	c.ServiceSecret = strings.TrimSpace(c.ServiceSecret)
	c.ServiceID = strings.TrimSpace(c.ServiceID)
	c.SentimentURL = strings.TrimSpace(c.SentimentURL)
	c.SentimentKey = strings.TrimSpace(c.SentimentKey)
	if c.ServiceID == "" {
		c.ServiceID = "wager-gateway"
	}
	if c.SentimentPolicy == "" {
		c.SentimentPolicy = gatewaysvc.SentimentForwardUnknown
	}
}

// Application ties the gateway services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts storage.AccountStore
	Posts    storage.PostStore
	Games    storage.GameStore

	Gateway *gatewaysvc.Service
	Balance *balancesvc.Service
	Worker  *gatewaysvc.WorkerClient
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	cfg.Normalize()
	if cfg.WorkerURL == "" {
		return nil, fmt.Errorf("worker URL is required")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Posts == nil {
		stores.Posts = mem
	}
	if stores.Games == nil {
		stores.Games = mem
	}

	manager := system.NewManager()

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var tokens gatewaysvc.TokenSource
	if cfg.ServiceSecret != "" {
		minted, err := gatewaysvc.NewServiceTokenSource([]byte(cfg.ServiceSecret), cfg.ServiceID, 0)
		if err != nil {
			return nil, fmt.Errorf("configure service tokens: %w", err)
		}
		tokens = minted
	} else {
		if cfg.WorkerToken == "" {
			log.Warn("no worker token configured; worker calls are unauthenticated")
		}
		tokens = gatewaysvc.StaticTokenSource(cfg.WorkerToken)
	}

	worker, err := gatewaysvc.NewWorkerClient(httpClient, cfg.WorkerURL, tokens)
	if err != nil {
		return nil, fmt.Errorf("configure worker client: %w", err)
	}
	gw := gatewaysvc.New(stores.Accounts, stores.Posts, worker, log)
	if cfg.SentimentURL != "" {
		resolver, err := sentimentsvc.NewHTTPResolver(httpClient, cfg.SentimentURL, cfg.SentimentKey, log)
		if err != nil {
			return nil, fmt.Errorf("configure sentiment resolver: %w", err)
		}
		gw.WithSentiment(resolver, cfg.SentimentPolicy)
	} else {
		log.Warn("sentiment resolver URL not set; votes forward without a fetched sentiment")
	}

	bal := balancesvc.New(gw.Worker(), gw, log)

	for _, name := range []string{"gateway", "balance"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Accounts: stores.Accounts,
		Posts:    stores.Posts,
		Games:    stores.Games,
		Gateway:  gw,
		Balance:  bal,
		Worker:   worker,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
