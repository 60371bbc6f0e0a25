// Command imap-preview imports an IMAP folder into a throwaway in-memory store
// and prints the threads the CRM would show for it. Nothing is persisted.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/vdavid/flowcrm/backend/internal/config"
	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/imap"
	"github.com/vdavid/flowcrm/backend/internal/models"
	"github.com/vdavid/flowcrm/backend/internal/store"
	"github.com/vdavid/flowcrm/backend/internal/threads"
)

func main() {
	log.Println("Starting IMAP preview...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IMAPHost == "" {
		log.Fatal("Error: CRM_IMAP_HOST, CRM_IMAP_USERNAME, and CRM_IMAP_PASSWORD environment variables are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	list, err := preview(ctx, cfg)
	if err != nil {
		log.Fatalf("Preview failed: %v", err)
	}

	printThreads(os.Stdout, list)
	log.Println("IMAP preview completed successfully")
}

func preview(ctx context.Context, cfg *config.Config) ([]models.Thread, error) {
	directory, err := contacts.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	mem := store.NewMemory(nil)
	importer := imap.NewImporter(mem, directory, cfg.IMAPHost, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPUseTLS)
	count, err := importer.Import(ctx, cfg.IMAPFolder)
	if err != nil {
		return nil, err
	}
	log.Printf("Imported %d messages from %s", count, cfg.IMAPFolder)

	messages, err := mem.List(ctx)
	if err != nil {
		return nil, err
	}
	return threads.Aggregate(messages)
}

func printThreads(w io.Writer, list []models.Thread) {
	_, _ = fmt.Fprintf(w, "%d thread(s)\n", len(list))
	for _, thread := range list {
		marker := " "
		if !thread.IsRead {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%s %-40s %2d msg  %-6s  %s\n",
			marker,
			thread.ThreadID,
			thread.MessageCount,
			thread.Priority,
			thread.Subject,
		)
	}
}
