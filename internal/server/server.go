// Package server wires the message store, mail services and HTTP handlers
// into the CRM mailbox API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/flowcrm/backend/internal/api"
	"github.com/vdavid/flowcrm/backend/internal/config"
	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/db"
	"github.com/vdavid/flowcrm/backend/internal/email"
	"github.com/vdavid/flowcrm/backend/internal/imap"
	"github.com/vdavid/flowcrm/backend/internal/metrics"
	"github.com/vdavid/flowcrm/backend/internal/relay"
	"github.com/vdavid/flowcrm/backend/internal/store"
	ws "github.com/vdavid/flowcrm/backend/internal/websocket"
)

// App holds the long-lived collaborators behind the HTTP handler.
type App struct {
	Service   *email.Service
	Directory contacts.Directory
	Hub       *ws.Hub
	Metrics   *metrics.Metrics

	pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		db.CloseConnection(a.pool)
	}
}

// NewApp builds the store selected by cfg, seeds it and creates the mail
// service around it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	directory, err := contacts.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	hub := ws.NewHub(cfg.WSMaxConnections)
	app := &App{
		Directory: directory,
		Hub:       hub,
		Metrics:   metrics.New(hub.ActiveConnections),
	}

	messages, err := app.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, cfg, messages, directory); err != nil {
		app.Close()
		return nil, err
	}

	opts := email.Options{Notifier: ws.NewNotifier(app.Hub)}
	if addr := cfg.SMTPAddress(); addr != "" {
		opts.Mailer = app.Metrics.Mailer(relay.NewSMTPMailer(addr, cfg.SMTPUsername, cfg.SMTPPassword))
		log.Printf("Relaying sent mail through %s", addr)
	}

	app.Service = email.NewService(
		store.WithLatency(messages, cfg.SimulatedLatencyMin, cfg.SimulatedLatencyMax),
		directory,
		cfg.MailboxAddress,
		opts,
	)
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (store.MessageStore, error) {
	if cfg.Store != config.StorePostgres {
		return store.NewMemory(nil), nil
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		db.CloseConnection(pool)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Printf("Successfully connected to database")

	a.pool = pool
	return db.NewMessageStore(pool), nil
}

// seed fills an empty store from the configured IMAP folder, or from the
// bundled fixture when no IMAP server is configured.
func seed(ctx context.Context, cfg *config.Config, messages store.MessageStore, directory contacts.Directory) error {
	existing, err := messages.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect store: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("Store already holds %d messages, skipping seed", len(existing))
		return nil
	}

	if cfg.IMAPHost != "" {
		importer := imap.NewImporter(messages, directory, cfg.IMAPHost, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPUseTLS)
		count, err := importer.Import(ctx, cfg.IMAPFolder)
		if err != nil {
			return fmt.Errorf("failed to import %s from %s: %w", cfg.IMAPFolder, cfg.IMAPHost, err)
		}
		log.Printf("Imported %d messages from %s", count, cfg.IMAPHost)
		return nil
	}

	fixture, err := store.DefaultFixture()
	if err != nil {
		return fmt.Errorf("failed to load message fixture: %w", err)
	}
	for _, msg := range fixture {
		if _, err := messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to seed message %d: %w", msg.ID, err)
		}
	}
	log.Printf("Seeded %d messages from fixture", len(fixture))
	return nil
}

// NewServer creates and returns a new HTTP handler for the CRM mailbox API.
func NewServer(cfg *config.Config, app *App) http.Handler {
	threadsHandler := api.NewThreadsHandler(app.Service, cfg.PageSize)
	threadHandler := api.NewThreadHandler(app.Service)
	messagesHandler := api.NewMessagesHandler(app.Service)
	searchHandler := api.NewSearchHandler(app.Service)
	contactsHandler := api.NewContactsHandler(app.Directory)
	wsHandler := api.NewWebSocketHandler(app.Hub)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, app.Metrics.Instrument(pattern, h))
	}

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.Handle("GET /metrics", app.Metrics.Handler())

	handle("GET /api/v1/threads", threadsHandler.GetThreads)
	handle("GET /api/v1/thread/{threadId}", threadHandler.GetThread)
	handle("POST /api/v1/thread/{threadId}/read", threadHandler.MarkRead)

	handle("GET /api/v1/messages", messagesHandler.List)
	handle("POST /api/v1/messages", messagesHandler.Send)
	handle("GET /api/v1/messages/{id}", messagesHandler.Get)
	handle("PATCH /api/v1/messages/{id}", messagesHandler.Update)
	handle("DELETE /api/v1/messages/{id}", messagesHandler.Delete)
	handle("POST /api/v1/messages/{id}/read", messagesHandler.MarkRead)
	handle("POST /api/v1/messages/{id}/unread", messagesHandler.MarkUnread)
	handle("POST /api/v1/messages/{id}/star", messagesHandler.ToggleStar)

	handle("GET /api/v1/search", searchHandler.Search)
	handle("GET /api/v1/contacts", contactsHandler.Search)
	handle("GET /api/v1/contacts/{id}", contactsHandler.Get)

	// Hijacked by the upgrade, so left uninstrumented.
	mux.HandleFunc("GET /api/v1/ws", wsHandler.Handle)

	if cfg.Environment == "test" {
		testHandler := api.NewTestHandler(app.Service)
		handle("POST /test/add-message", testHandler.AddMessage)
	}

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "FlowCRM mailbox API is running")
}
