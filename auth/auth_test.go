package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chathub/errors"
)

func Test_Hash_And_Compare_Password(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Sup3rC0mplex!Passw0rd")
	req.NoError(err)
	req.NotContains(hash, "Sup3rC0mplex")

	match, err := ComparePassword("Sup3rC0mplex!Passw0rd", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)
}

func Test_Hashing_Is_Salted(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("Sup3rC0mplex!Passw0rd")
	req.NoError(err)
	second, err := HashPassword("Sup3rC0mplex!Passw0rd")
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestValidateRegister(t *testing.T) {
	valid := RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Sup3rC0mplex!Passw0rd",
	}

	t.Run("valid request", func(t *testing.T) {
		require.NoError(t, ValidateRegister(valid))
	})

	t.Run("invalid email", func(t *testing.T) {
		invalid := valid
		invalid.Email = "not-an-email"
		require.Error(t, ValidateRegister(invalid))
	})

	t.Run("too short password", func(t *testing.T) {
		invalid := valid
		invalid.Password = "Ab1!"
		require.Error(t, ValidateRegister(invalid))
	})

	t.Run("long but simple password", func(t *testing.T) {
		invalid := valid
		invalid.Password = "aaaaaaaaaaaaaaaaaaaa"
		err := ValidateRegister(invalid)
		require.ErrorIs(t, err, errors.ErrInvalidPassword)
	})
}
