package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/dmitrijs2005/communityapp/internal/client/client"
	"github.com/dmitrijs2005/communityapp/internal/client/config"
	"github.com/dmitrijs2005/communityapp/internal/client/identity"
	"github.com/dmitrijs2005/communityapp/internal/client/securestore"
	"github.com/dmitrijs2005/communityapp/internal/client/session"
	"github.com/dmitrijs2005/communityapp/internal/client/tokenstore"
	"github.com/dmitrijs2005/communityapp/internal/logging"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	appName      = "communityapp"
	readyTimeout = 20 * time.Second
)

// initDatabase is a test seam for securestore.InitDatabase.
var initDatabase = securestore.InitDatabase

type App struct {
	config   *config.Config
	log      logging.Logger
	gatherer prometheus.Gatherer

	db       *sql.DB
	provider *identity.FirebaseProvider
	rec      *session.Reconciler
	core     sessionCore

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	log, err := logging.New(c.LogFormat, c.LogLevel, os.Stderr)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var (
		db    *sql.DB
		store securestore.Store
	)
	if c.StoragePath == "" {
		log.Warn(ctx, "no storage path configured, session will not survive a restart")
		store = securestore.NewMemoryStore()
	} else {
		if c.StorageSecret == "" {
			return nil, errors.New("storage secret is required with a storage path (-s)")
		}
		db, err = initDatabase(ctx, c.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("error initializing database: %w", err)
		}
		defer func() {
			if err != nil {
				_ = db.Close()
			}
		}()
		store, err = securestore.NewSQLiteStore(ctx, db, []byte(c.StorageSecret))
		if err != nil {
			return nil, err
		}
	}

	tokens, err := tokenstore.New(store, log.With("component", "tokenstore"), m)
	if err != nil {
		return nil, err
	}

	gateway, err := client.NewHTTPClient(client.HTTPConfig{
		BaseURL:      c.BackendURL,
		Timeout:      c.RequestTimeout,
		RetryTimeout: c.RetryTimeout,
	}, tokens, log.With("component", "gateway"), m)
	if err != nil {
		return nil, err
	}

	provider, err := identity.NewFirebaseProvider(identity.FirebaseConfig{
		APIKey:              c.IdentityAPIKey,
		IdentityEndpoint:    c.IdentityEndpoint,
		SecureTokenEndpoint: c.SecureTokenEndpoint,
	}, store, log.With("component", "identity"))
	if err != nil {
		return nil, err
	}

	rec, err := session.NewReconciler(provider, gateway, tokens, log.With("component", "session"), m)
	if err != nil {
		return nil, err
	}

	return &App{
		config:   c,
		log:      log,
		gatherer: reg,
		db:       db,
		provider: provider,
		rec:      rec,
		core:     rec,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run restores any saved session, starts reconciliation and blocks in the
// REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	figure.NewFigure(appName, "cybermedium", true).Print()
	fmt.Fprintln(a.out)

	if err := a.provider.Restore(ctx); err != nil {
		a.log.Warn(ctx, "failed to restore identity session", "error", err)
	}

	unsubscribe := a.rec.Subscribe(a.onSession)
	defer unsubscribe()

	if err := a.rec.Start(ctx); err != nil {
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	err := a.rec.WaitReady(readyCtx)
	cancel()
	if err != nil {
		a.log.Warn(ctx, "session is still loading", "error", err)
	}

	fmt.Fprintln(a.out, "Welcome to the community app CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) onSession(s session.Session) {
	if s.User != nil {
		fmt.Fprintf(a.out, "\n[session] signed in as %s\n", s.User.Email)
		return
	}
	fmt.Fprintf(a.out, "\n[session] %s\n", s.State)
}

func (a *App) close() {
	if err := a.rec.Close(); err != nil {
		a.log.Warn(context.Background(), "failed to stop reconciler", "error", err)
	}
	a.provider.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
}
