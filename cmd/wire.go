package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/bnema/atp-accounts-cli/internal/adapters/labelcache"
	statusadapter "github.com/bnema/atp-accounts-cli/internal/adapters/render/status"
	snapshottoml "github.com/bnema/atp-accounts-cli/internal/adapters/snapshot/toml"
	"github.com/bnema/atp-accounts-cli/internal/adapters/xrpc"
	"github.com/bnema/atp-accounts-cli/internal/application"
	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/moderation"
)

const labelCacheFile = "labelers.toml"

type app struct {
	manager        *application.Manager
	resolver       *xrpc.Resolver
	labelCache     *labelcache.Store
	statusRenderer func([]application.Status, statusadapter.RenderOptions) (string, error)
	defaultService string
	httpClient     *http.Client
}

func wireApp() (*app, error) {
	cfg := viper.New()
	cfg.SetDefault("resume.retries", 1)

	store, err := snapshottoml.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire snapshot store: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	httpClient := http.DefaultClient
	resolver := &xrpc.Resolver{HTTP: httpClient}
	labelCache := labelcache.NewStore(filepath.Join(homeDir, ".atp", labelCacheFile))

	configurator := moderation.NewConfigurator(resolver, labelCache, moderation.Config{
		DefaultLabelSource:  domain.DID(cfg.GetString("moderation.default_labeler")),
		TestAuthorityHandle: cfg.GetString("moderation.test_authority"),
	})

	manager := application.NewManager(application.Deps{
		Factory:    &xrpc.Factory{HTTP: httpClient},
		Store:      store,
		Moderation: configurator,
	}, application.Config{
		ResumeRetries: cfg.GetInt("resume.retries"),
	})

	return &app{
		manager:        manager,
		resolver:       resolver,
		labelCache:     labelCache,
		statusRenderer: statusadapter.Render,
		defaultService: envOrDefault("ATP_SERVICE", "https://bsky.social"),
		httpClient:     httpClient,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
