package imap

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// RunThreadCommand runs UID THREAD with the REFERENCES algorithm over the
// selected folder.
func RunThreadCommand(c *client.Client) ([]*sortthread.Thread, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	threadClient := sortthread.NewThreadClient(c)

	threads, err := threadClient.UidThread(sortthread.References, imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("THREAD command returned error: %w", err)
	}

	return threads, nil
}

// supportsThreading reports whether the server can thread by references.
func supportsThreading(c *client.Client) bool {
	ok, err := c.Support("THREAD=REFERENCES")
	return err == nil && ok
}

// rootsFromThreads maps every UID in the thread trees to the UID of its root.
func rootsFromThreads(threads []*sortthread.Thread) map[uint32]uint32 {
	roots := make(map[uint32]uint32)

	var walk func(*sortthread.Thread, uint32)
	walk = func(thread *sortthread.Thread, rootUID uint32) {
		if thread == nil {
			return
		}
		roots[thread.Id] = rootUID
		for _, child := range thread.Children {
			walk(child, rootUID)
		}
	}

	for _, thread := range threads {
		if thread != nil {
			walk(thread, thread.Id)
		}
	}
	return roots
}

// rootsFromSubjects groups messages by base subject for servers without the
// THREAD extension. The oldest message of each group is its root.
func rootsFromSubjects(messages []*imap.Message) map[uint32]uint32 {
	ordered := make([]*imap.Message, 0, len(messages))
	for _, msg := range messages {
		if msg != nil && msg.Envelope != nil {
			ordered = append(ordered, msg)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].Envelope.Date, ordered[j].Envelope.Date
		if a.Equal(b) {
			return ordered[i].Uid < ordered[j].Uid
		}
		return a.Before(b)
	})

	roots := make(map[uint32]uint32)
	bySubject := make(map[string]uint32)
	for _, msg := range ordered {
		base, _ := sortthread.GetBaseSubject(msg.Envelope.Subject)
		rootUID, ok := bySubject[base]
		if !ok {
			rootUID = msg.Uid
			bySubject[base] = rootUID
		}
		roots[msg.Uid] = rootUID
	}
	return roots
}

// threadIDs turns root UIDs into stable thread IDs built from the root's
// Message-ID, falling back to the root UID when the header is missing.
func threadIDs(folder string, messages []*imap.Message, roots map[uint32]uint32) map[uint32]string {
	byUID := make(map[uint32]*imap.Message, len(messages))
	for _, msg := range messages {
		if msg != nil {
			byUID[msg.Uid] = msg
		}
	}

	ids := make(map[uint32]string, len(roots))
	for uid, rootUID := range roots {
		id := ""
		if root, ok := byUID[rootUID]; ok {
			id = stableMessageID(root.Envelope)
		}
		if id == "" {
			id = fmt.Sprintf("%s_%d", folder, rootUID)
		}
		ids[uid] = "imap_" + id
	}
	return ids
}
