package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dm-service/internal/db"
	"dm-service/internal/identity"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock     *fakeClock
	directory *Directory
	contacts  *Contacts
	messages  *Messages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Connect("sqlite", filepath.Join(t.TempDir(), "dm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	fc := &fakeClock{now: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	clock := NewClock(fc.Now)
	users := repositories.NewUserRepo(database)
	return &fixture{
		clock:     fc,
		directory: NewDirectory(users, clock),
		contacts:  NewContacts(users, repositories.NewContactRepo(database), clock),
		messages:  NewMessages(users, repositories.NewConversationRepo(database), clock),
	}
}

func (f *fixture) signIn(t *testing.T, subject, email, username string) {
	t.Helper()
	_, err := f.directory.UpsertCurrentUser(context.Background(), identity.Identity{Subject: subject, Email: email}, models.ProfileHints{Username: username})
	require.NoError(t, err)
}

func contents(msgs []models.Message) []string {
	out := []string{}
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
