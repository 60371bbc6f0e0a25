package imap

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/flowcrm/backend/internal/contacts"
	"github.com/vdavid/flowcrm/backend/internal/store"
	"github.com/vdavid/flowcrm/backend/internal/testutil"
	"github.com/vdavid/flowcrm/backend/internal/threads"
)

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	server := testutil.NewTestIMAPServer(t)
	server.CreateFolder(t, "CRM")
	server.AddMessage(t, "CRM", testutil.IMAPMessage{
		MessageID: "<budget-1@techcorp.com>",
		Subject:   "Q1 Budget",
		From:      "Sarah Johnson <sarah.johnson@techcorp.com>",
		To:        "john.doe@flowcrm.com",
		SentAt:    base,
		Flags:     []string{imap.SeenFlag},
	})
	server.AddMessage(t, "CRM", testutil.IMAPMessage{
		MessageID: "<budget-2@flowcrm.com>",
		InReplyTo: "<budget-1@techcorp.com>",
		Subject:   "Re: Q1 Budget",
		From:      "john.doe@flowcrm.com",
		To:        "sarah.johnson@techcorp.com",
		SentAt:    base.Add(time.Hour),
		Flags:     []string{imap.SeenFlag, imap.FlaggedFlag},
	})
	server.AddMessage(t, "CRM", testutil.IMAPMessage{
		MessageID: "<demo@enterprise.net>",
		Subject:   "Enterprise demo",
		From:      "lisa.wang@enterprise.net",
		To:        "john.doe@flowcrm.com",
		Body:      "Can we book a demo?",
		SentAt:    base.Add(-time.Hour),
	})

	directory, err := contacts.NewDefault()
	require.NoError(t, err)

	t.Run("imports and threads the folder", func(t *testing.T) {
		mem := store.NewMemory(nil)
		importer := NewImporter(mem, directory, server.Address, server.Username(), server.Password(), false)

		count, err := importer.Import(ctx, "CRM")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		all, err := mem.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Enterprise demo", all[0].Subject)
		assert.Equal(t, "Can we book a demo?", all[0].Body)
		assert.False(t, all[0].IsRead)
		require.NotNil(t, all[0].ContactID)
		assert.Equal(t, int64(5), *all[0].ContactID)

		list, err := threads.Aggregate(all)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "imap_budget-1@techcorp.com", list[0].ThreadID)
		assert.Equal(t, 2, list[0].MessageCount)
		assert.True(t, list[0].IsStarred)
		assert.True(t, list[0].IsRead)
		assert.Equal(t, "Q1 Budget", list[0].Subject)
		assert.Equal(t, "imap_demo@enterprise.net", list[1].ThreadID)
	})

	t.Run("empty folder imports nothing", func(t *testing.T) {
		server.CreateFolder(t, "Empty")
		importer := NewImporter(store.NewMemory(nil), nil, server.Address, server.Username(), server.Password(), false)

		count, err := importer.Import(ctx, "Empty")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("unknown folder", func(t *testing.T) {
		importer := NewImporter(store.NewMemory(nil), nil, server.Address, server.Username(), server.Password(), false)

		_, err := importer.Import(ctx, "Missing")
		assert.ErrorIs(t, err, ErrFolderNotFound)
	})

	t.Run("bad credentials", func(t *testing.T) {
		importer := NewImporter(store.NewMemory(nil), nil, server.Address, server.Username(), "wrong", false)

		_, err := importer.Import(ctx, "CRM")
		assert.Error(t, err)
	})
}

func TestListFolders(t *testing.T) {
	t.Run("returns error for nil client", func(t *testing.T) {
		_, err := ListFolders(nil)
		assert.EqualError(t, err, "client is nil")
	})

	t.Run("lists created folders", func(t *testing.T) {
		server := testutil.NewTestIMAPServer(t)
		server.CreateFolder(t, "Archive")
		c, cleanup := server.Connect(t)
		defer cleanup()

		folders, err := ListFolders(c)
		require.NoError(t, err)
		assert.Contains(t, folders, "INBOX")
		assert.Contains(t, folders, "Archive")
	})
}

func TestFetchMessagesNilClient(t *testing.T) {
	_, err := FetchMessages(nil)
	assert.EqualError(t, err, "client is nil")
}
