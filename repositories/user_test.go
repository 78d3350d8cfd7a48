package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chathub/domain"
	"chathub/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Create_And_Get_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser(domain.User{
		Name:  "Alice",
		Email: "alice@example.com",
	})
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.False(created.CreatedAt.IsZero())

	fetched, err := repository.GetUser(created.ID)
	req.NoError(err)
	req.Equal(created, fetched)

	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(created, byEmail)
}

func Test_Create_User_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.CreateUser(domain.User{Name: "Alice", Email: "alice@example.com"})
	req.NoError(err)

	_, err = repository.CreateUser(domain.User{Name: "Imposter", Email: "alice@example.com"})
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetUser("ghost")
	req.Equal(errors.CodeNotFound, errors.CodeOf(err))

	_, err = repository.GetUserByEmail("ghost@example.com")
	req.Equal(errors.CodeNotFound, errors.CodeOf(err))
}

func Test_Set_Online_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	created, err := repository.CreateUser(domain.User{Name: "Alice", Email: "alice@example.com"})
	req.NoError(err)
	req.False(created.Online)

	online, err := repository.SetOnline(created.ID, true)
	req.NoError(err)
	req.True(online.Online)

	fetched, err := repository.GetUser(created.ID)
	req.NoError(err)
	req.True(fetched.Online)

	offline, err := repository.SetOnline(created.ID, false)
	req.NoError(err)
	req.False(offline.Online)
}
