// Package cli wires the shared app plumbing the three binaries need before
// they can talk to the backend: config, logging, the device store, the auth
// session and the HTTP client.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shivdhaba/delivery-core/internal/api"
	"github.com/shivdhaba/delivery-core/internal/auth"
	"github.com/shivdhaba/delivery-core/internal/config"
	"github.com/shivdhaba/delivery-core/internal/storage"
)

type App struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Storage *storage.Store
	Auth    *auth.Store
	Client  *api.Client
}

// Bootstrap loads config, opens the device store and builds an
// authenticated client. The auth failure handler clears the session so the
// next command starts at the login prompt.
func Bootstrap(configPath, logLevel string) (*App, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logger.SetLevel(level)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := storage.Open(cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	authStore := auth.NewStore(st, logger)
	client := api.NewClient(cfg.API.BaseURL, authStore, logger,
		api.WithTimeout(cfg.API.Timeout),
		api.WithAuthFailureHandler(func() {
			fmt.Fprintln(os.Stderr, "Session expired, please log in again.")
		}),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Storage: st,
		Auth:    authStore,
		Client:  client,
	}, nil
}

func (a *App) Close() {
	if err := a.Storage.Close(); err != nil {
		a.Logger.WithError(err).Warn("Failed to close device store")
	}
}

// RequireLogin guards commands that need an authenticated session.
func (a *App) RequireLogin() error {
	if !a.Auth.IsLoggedIn() {
		return fmt.Errorf("not logged in, run the login command first")
	}
	return nil
}

// Prompt reads one trimmed line from stdin.
func Prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question and defaults to no.
func Confirm(label string) bool {
	answer, err := Prompt(label + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}
