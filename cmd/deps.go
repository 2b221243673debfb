package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/simulado/internal/auth"
	"github.com/abhisek/simulado/internal/billing"
	"github.com/abhisek/simulado/internal/config"
	"github.com/abhisek/simulado/internal/logging"
	"github.com/abhisek/simulado/internal/store"
	"github.com/abhisek/simulado/internal/subscription"
)

// env holds what every command needs: configuration, the store, the
// plan cache and the signed-in session.
type env struct {
	cfg     config.Config
	log     *slog.Logger
	store   *store.Store
	plans   *subscription.Cache
	auth    *auth.Service
	session *auth.Session

	logFile io.Closer
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DB.DSN = p
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, cfg.Validate()
}

// openEnv opens the store and restores the session. The TUI owns the
// terminal, so with toFile set logs go to the data dir instead of stderr.
func openEnv(cmd *cobra.Command, toFile bool) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	e := &env{cfg: cfg}
	var w io.Writer = cmd.ErrOrStderr()
	if toFile {
		f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		e.logFile = f
		w = f
	}
	e.log = logging.New(w, cfg.LogLevel)

	dsn := cfg.DBPath()
	if cfg.DB.Driver == store.DriverSQLite {
		if err := store.EnsureDir(dsn); err != nil {
			e.Close()
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	e.store, err = store.Open(cfg.DB.Driver, dsn)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	e.plans, err = subscription.NewCache(e.store.Accounts(), cfg.Cache.PlanTTL, 0)
	if err != nil {
		e.Close()
		return nil, err
	}

	secret, err := cfg.Secret()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.auth = auth.NewService(e.store.Accounts(), auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL))
	e.session = auth.NewSession(e.auth, auth.TokenFile(cfg.TokenPath()))
	if err := e.session.Start(cmd.Context()); err != nil {
		e.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	e.session.OnChange(func(id *auth.Identity) {
		if id != nil {
			e.plans.Invalidate(id.ID)
		}
	})
	return e, nil
}

// Close releases everything openEnv acquired.
func (e *env) Close() {
	if e.plans != nil {
		e.plans.Close()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && e.log != nil {
			e.log.Warn("close store", "error", err)
		}
	}
	if e.logFile != nil {
		e.logFile.Close()
	}
}

// gateway builds the payment provider client.
func (e *env) gateway() *billing.HTTPGateway {
	var notify string
	if base := strings.TrimRight(e.cfg.Webhook.PublicURL, "/"); base != "" {
		notify = base + billing.WebhookPath
	}
	return billing.NewHTTPGateway(e.cfg.Webhook.PaymentsURL, e.cfg.Webhook.PaymentsToken, notify)
}

// checkout creates a checkout URL for the signed-in user.
func (e *env) checkout(ctx context.Context, userID string, plan subscription.Plan) (string, error) {
	id := e.session.Current()
	if id == nil || id.ID != userID {
		return "", errNotSignedIn
	}
	return e.gateway().CreateCheckout(ctx, billing.CheckoutRequest{
		UserID:    id.ID,
		Email:     id.Email,
		Plan:      plan,
		ReturnURL: e.cfg.Webhook.PublicURL,
	})
}

// premium reports the signed-in user's tier. Read failures count as free.
func (e *env) premium(ctx context.Context) bool {
	userID := e.session.UserID()
	if userID == "" {
		return false
	}
	ok, err := e.plans.IsPremium(ctx, userID)
	if err != nil {
		e.log.Warn("plan lookup failed, assuming free", "user_id", userID, "error", err)
		return false
	}
	return ok
}

var errNotSignedIn = errors.New("not signed in: run `simulado login` first")

// requireUser returns the signed-in identity or errNotSignedIn.
func (e *env) requireUser() (*auth.Identity, error) {
	id := e.session.Current()
	if id == nil {
		return nil, errNotSignedIn
	}
	return id, nil
}
