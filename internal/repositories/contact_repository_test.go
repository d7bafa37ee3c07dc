package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactRepoAddIsIdempotent(t *testing.T) {
	repo := NewContactRepo(openTestDB(t))
	ctx := context.Background()

	first, created, err := repo.AddContact(ctx, "user-1", "user-2", baseTime)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.AddContact(ctx, "user-1", "user-2", baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.Equal(baseTime))

	contacts, err := repo.ListContacts(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
}

func TestContactRepoRejectsSelf(t *testing.T) {
	repo := NewContactRepo(openTestDB(t))

	_, _, err := repo.AddContact(context.Background(), "user-1", "user-1", baseTime)
	require.Error(t, err)
}

func TestContactRepoListIsOwnerScoped(t *testing.T) {
	repo := NewContactRepo(openTestDB(t))
	ctx := context.Background()

	for _, pair := range [][2]string{{"user-1", "user-2"}, {"user-1", "user-3"}, {"user-2", "user-1"}} {
		_, _, err := repo.AddContact(ctx, pair[0], pair[1], baseTime)
		require.NoError(t, err)
	}

	contacts, err := repo.ListContacts(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	for _, c := range contacts {
		assert.Equal(t, "user-1", c.OwnerID)
	}
}

func TestContactRepoListWithProfilesLeftJoins(t *testing.T) {
	database := openTestDB(t)
	users := NewUserRepo(database)
	repo := NewContactRepo(database)
	ctx := context.Background()

	seedUser(t, users, "user-2", "bob@example.com", "Bob")
	_, _, err := repo.AddContact(ctx, "user-1", "user-2", baseTime)
	require.NoError(t, err)
	_, _, err = repo.AddContact(ctx, "user-1", "ghost", baseTime)
	require.NoError(t, err)

	items, err := repo.ListContactsWithProfiles(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "user-2", items[0].Contact.ContactID)
	require.NotNil(t, items[0].User)
	assert.Equal(t, "Bob", items[0].User.DisplayName)

	assert.Equal(t, "ghost", items[1].Contact.ContactID)
	assert.Nil(t, items[1].User)
}

func TestContactRepoDeleteCascadesConversation(t *testing.T) {
	database := openTestDB(t)
	contacts := NewContactRepo(database)
	conv := NewConversationRepo(database)
	ctx := context.Background()

	_, _, err := contacts.AddContact(ctx, "user-1", "user-2", baseTime)
	require.NoError(t, err)
	_, err = conv.CreateMessage(ctx, "user-1", "user-2", "hi", baseTime)
	require.NoError(t, err)
	_, err = conv.CreateMessage(ctx, "user-2", "user-1", "hello", baseTime.Add(time.Second))
	require.NoError(t, err)
	_, _, err = contacts.AddContact(ctx, "user-1", "user-3", baseTime)
	require.NoError(t, err)
	_, err = conv.CreateMessage(ctx, "user-1", "user-3", "unrelated", baseTime)
	require.NoError(t, err)
	_, err = conv.UpsertWatermark(ctx, "user-2", "user-1", baseTime)
	require.NoError(t, err)

	result, err := contacts.DeleteContact(ctx, "user-1", "user-2")
	require.NoError(t, err)
	assert.True(t, result.DeletedContact)
	assert.EqualValues(t, 2, result.DeletedMessages)

	msgs, err := conv.ListConversation(ctx, "user-1", "user-2")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = conv.ListConversation(ctx, "user-1", "user-3")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = conv.GetWatermark(ctx, "user-2", "user-1")
	assert.ErrorIs(t, err, ErrWatermarkNotFound)

	// the reciprocal edge belongs to user-2 and survives
	_, err = contacts.GetContact(ctx, "user-2", "user-1")
	require.NoError(t, err)
}

func TestContactRepoDeleteMissingIsNoop(t *testing.T) {
	repo := NewContactRepo(openTestDB(t))

	result, err := repo.DeleteContact(context.Background(), "user-1", "user-2")
	require.NoError(t, err)
	assert.False(t, result.DeletedContact)
	assert.Zero(t, result.DeletedMessages)
}
