package verification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		code, err := GenerateCode(CodeLength)
		require.NoError(t, err)
		require.Len(t, code, CodeLength)

		for _, ch := range code {
			assert.True(t, strings.ContainsRune(alphabet, ch), "unexpected %q in %q", ch, code)
		}

		seen[code] = struct{}{}
	}

	assert.Greater(t, len(seen), 95)
}

func TestCodeMessage(t *testing.T) {
	msg, err := CodeMessage("alice@example.com", "Ab3dE6gH9j")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", msg.Email)
	assert.Equal(t, mailSubject, msg.Subject)
	assert.Contains(t, msg.Body, "CODE : <strong>Ab3dE6gH9j</strong>")
}
