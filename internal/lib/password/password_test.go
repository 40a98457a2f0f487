package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHash(t *testing.T) {
	h := New(bcrypt.MinCost)

	t.Run("same password hashes differently", func(t *testing.T) {
		h1, err := h.Hash("secret1")
		require.NoError(t, err)
		h2, err := h.Hash("secret1")
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2)
		assert.True(t, h.Verify("secret1", h1))
		assert.True(t, h.Verify("secret1", h2))
	})

	t.Run("hash describes its cost", func(t *testing.T) {
		hash, err := h.Hash("secret1")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(hash), "$2a$"))
		assert.Equal(t, bcrypt.MinCost, Cost(hash))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := h.Hash("")
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("rejects over 72 bytes", func(t *testing.T) {
		_, err := h.Hash(strings.Repeat("a", MaxLength+1))
		assert.ErrorIs(t, err, ErrTooLong)

		_, err = h.Hash(strings.Repeat("a", MaxLength))
		assert.NoError(t, err)
	})
}

func TestVerify(t *testing.T) {
	h := New(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	tests := []struct {
		name  string
		plain string
		hash  []byte
		want  bool
	}{
		{name: "match", plain: "correct horse", hash: hash, want: true},
		{name: "wrong password", plain: "correct horsE", hash: hash, want: false},
		{name: "prefix of password", plain: "correct", hash: hash, want: false},
		{name: "empty password", plain: "", hash: hash, want: false},
		{name: "malformed hash", plain: "correct horse", hash: []byte("not-a-hash"), want: false},
		{name: "nil hash", plain: "correct horse", hash: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Verify(tt.plain, tt.hash))
		})
	}
}

func TestVerify_OlderCost(t *testing.T) {
	old, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost+1)
	require.NoError(t, err)

	assert.True(t, New(bcrypt.MinCost).Verify("secret1", old))
}

func TestNew_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, New(0).cost)
	assert.Equal(t, bcrypt.MaxCost, New(100).cost)
}
