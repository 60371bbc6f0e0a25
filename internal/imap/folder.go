package imap

import (
	"errors"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// ErrFolderNotFound is returned when the requested folder does not exist.
var ErrFolderNotFound = errors.New("folder not found")

// ListFolders lists all folders on the IMAP server.
func ListFolders(c *client.Client) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	folders := make([]string, 0)
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// SelectFolder opens folder read-only and returns its message count.
func SelectFolder(c *client.Client, folder string) (uint32, error) {
	folders, err := ListFolders(c)
	if err != nil {
		return 0, err
	}

	found := false
	for _, name := range folders {
		if name == folder {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	mbox, err := c.Select(folder, true)
	if err != nil {
		return 0, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}
	return mbox.Messages, nil
}
