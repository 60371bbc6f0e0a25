package imap

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/store"
)

// Importer copies the messages of one IMAP folder into a message store.
type Importer struct {
	messages  store.MessageStore
	directory contacts.Directory
	server    string
	username  string
	password  string
	useTLS    bool
}

// NewImporter creates an importer for the account at server (host:port).
// directory may be nil, in which case messages are not linked to contacts.
func NewImporter(messages store.MessageStore, directory contacts.Directory, server, username, password string, useTLS bool) *Importer {
	return &Importer{
		messages:  messages,
		directory: directory,
		server:    server,
		username:  username,
		password:  password,
		useTLS:    useTLS,
	}
}

// Import stores every message of folder, oldest first, and returns how many
// were stored. Messages that cannot be parsed are skipped.
func (i *Importer) Import(ctx context.Context, folder string) (int, error) {
	c, err := connect(ctx, i.server, i.username, i.password, i.useTLS)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = c.Logout()
	}()

	count, err := SelectFolder(c, folder)
	if err != nil {
		return 0, err
	}
	log.Printf("IMAP: selected folder %s: %d messages", folder, count)
	if count == 0 {
		return 0, nil
	}

	fetched, err := FetchMessages(c)
	if err != nil {
		return 0, err
	}

	var roots map[uint32]uint32
	if supportsThreading(c) {
		threads, err := RunThreadCommand(c)
		if err != nil {
			log.Printf("IMAP: THREAD failed, grouping by subject: %v", err)
		} else {
			roots = rootsFromThreads(threads)
		}
	}
	if roots == nil {
		roots = rootsFromSubjects(fetched)
	}
	ids := threadIDs(folder, fetched, roots)

	sort.SliceStable(fetched, func(a, b int) bool {
		return messageTime(fetched[a]).Before(messageTime(fetched[b]))
	})

	stored := 0
	for _, imapMsg := range fetched {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		msg, err := ParseMessage(imapMsg)
		if err != nil {
			log.Printf("IMAP: skipping message %d: %v", imapMsg.Uid, err)
			continue
		}
		threadID, ok := ids[imapMsg.Uid]
		if !ok {
			threadID = fmt.Sprintf("imap_%s_%d", folder, imapMsg.Uid)
		}
		msg.ThreadID = threadID

		if i.directory != nil {
			if contact, err := i.directory.ResolveAddress(ctx, msg.From); err == nil && contact != nil {
				id := contact.ID
				msg.ContactID = &id
			}
		}

		if _, err := i.messages.Create(ctx, msg); err != nil {
			return stored, fmt.Errorf("failed to store message %d: %w", imapMsg.Uid, err)
		}
		stored++
	}

	log.Printf("IMAP: imported %d messages from %s", stored, folder)
	return stored, nil
}

func messageTime(msg *imap.Message) time.Time {
	if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
		return msg.Envelope.Date
	}
	return msg.InternalDate
}
