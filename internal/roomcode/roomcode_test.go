package roomcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, Length)
		assert.Equal(t, strings.ToUpper(code), code)

		for _, r := range code {
			assert.Contains(t, alphabet, string(r))
		}
		for _, ambiguous := range []string{"0", "O", "I", "1", "L"} {
			assert.NotContains(t, code, ambiguous)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABCD", Normalize(" abcd "))
	assert.Equal(t, "WXYZ", Normalize("WxYz"))
	assert.Equal(t, "", Normalize("   "))
}
