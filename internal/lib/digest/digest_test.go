package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "a4048cba70dad0be0b01a8bb00027c775386c3f6194943ad3bf37204781edbc5", SHA256Hex("p@ss"))
	assert.NotEqual(t, SHA256Hex("p@ss"), SHA256Hex("p@sS"))
}

func TestHasher_SHA256(t *testing.T) {
	h, err := New(SchemeSHA256)
	require.NoError(t, err)

	stored, err := h.Hash("p@ss")
	require.NoError(t, err)

	assert.Equal(t, SHA256Hex("p@ss"), stored)
	assert.True(t, h.Compare(stored, "p@ss"))
	assert.False(t, h.Compare(stored, "p@ss "))
	assert.False(t, h.Compare(stored, ""))
}

func TestHasher_AcceptsUppercaseHex(t *testing.T) {
	h, err := New(SchemeSHA256)
	require.NoError(t, err)

	upper := "9F86D081884C7D659A2FEAA0C55AD015A3BF4F1B2B0B822CD15D6C15B0F00A08" // sha256("test")

	assert.True(t, h.Compare(upper, "test"))
}

func TestHasher_Bcrypt(t *testing.T) {
	h, err := New(SchemeBcrypt)
	require.NoError(t, err)

	stored, err := h.Hash("p@ss")
	require.NoError(t, err)

	assert.True(t, isBcrypt(stored))
	assert.True(t, h.Compare(stored, "p@ss"))
	assert.False(t, h.Compare(stored, "wrong"))
}

func TestHasher_VerifiesEitherScheme(t *testing.T) {
	bc, err := New(SchemeBcrypt)
	require.NoError(t, err)
	sha, err := New(SchemeSHA256)
	require.NoError(t, err)

	bcryptDigest, err := bc.Hash("secret")
	require.NoError(t, err)

	assert.True(t, sha.Compare(bcryptDigest, "secret"))
	assert.True(t, bc.Compare(SHA256Hex("secret"), "secret"))
}

func TestNew_UnknownScheme(t *testing.T) {
	_, err := New("md5")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestNew_DummyScheme(t *testing.T) {
	h, err := New(SchemeSHA256)
	require.NoError(t, err)
	assert.False(t, isBcrypt(h.dummy))

	h, err = New(SchemeSHA256, WithDummyScheme(SchemeBcrypt))
	require.NoError(t, err)
	assert.True(t, isBcrypt(h.dummy), "unknown users pay for a bcrypt compare")

	stored, err := h.Hash("p@ss")
	require.NoError(t, err)
	assert.Equal(t, SHA256Hex("p@ss"), stored, "new digests keep the configured scheme")

	_, err = New(SchemeSHA256, WithDummyScheme("md5"))
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
