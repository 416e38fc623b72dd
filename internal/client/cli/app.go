// Package cli implements the interactive presentation layer of the todo
// keeper: a REPL over the session and storage services.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"

	"github.com/dmitrijs2005/todokeeper/internal/client/client"
	"github.com/dmitrijs2005/todokeeper/internal/client/config"
	"github.com/dmitrijs2005/todokeeper/internal/client/models"
	"github.com/dmitrijs2005/todokeeper/internal/client/repositories/kv"
	"github.com/dmitrijs2005/todokeeper/internal/client/services"
	"github.com/dmitrijs2005/todokeeper/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	storage services.StorageService
	session services.SessionService
	log     logging.Logger
	db      *sql.DB
	reader  *bufio.Reader

	// userName mirrors the current session for the prompt; it is kept
	// up to date by a session subscriber.
	userName string
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	repo := kv.NewSQLiteRepository(db)
	storage := services.NewStorageService(repo, log)
	session := services.NewSessionService(storage, log)

	return &App{
		config:  c,
		storage: storage,
		session: session,
		log:     log,
		db:      db,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.session.Current() != nil
}

// Run restores a persisted session and starts the REPL. The session
// subscription keeps the prompt's user name current and logs transitions;
// it is torn down when the REPL exits.
func (a *App) Run(ctx context.Context) {
	cancel := a.session.Subscribe(func(u *models.User) {
		if u == nil {
			a.userName = ""
			return
		}
		a.userName = u.Name
	})
	defer cancel()

	a.session.Bootstrap(ctx)
	if u := a.session.Current(); u != nil {
		printlnFn("Welcome back, " + u.Name + "!")
	}

	a.Root(ctx)
}
