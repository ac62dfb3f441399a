package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		assert.Equal(t, "john@test.com", Email("  John@Test.com "))
	})

	t.Run("rejects values without a usable domain", func(t *testing.T) {
		assert.Empty(t, Email("not-an-email"))
		assert.Empty(t, Email("@nodomain.com"))
		assert.Empty(t, Email("user@"))
		assert.Empty(t, Email("user@localhost"))
		assert.Empty(t, Email(""))
	})
}

func TestPhone(t *testing.T) {
	t.Run("strips formatting to national digits", func(t *testing.T) {
		assert.Equal(t, "7075551234", Phone("(707) 555-1234"))
		assert.Equal(t, "7075551234", Phone("707.555.1234"))
	})

	t.Run("drops leading country code", func(t *testing.T) {
		assert.Equal(t, "7075551234", Phone("+1 707 555 1234"))
		assert.Equal(t, "7075551234", Phone("17075551234"))
	})

	t.Run("rejects numbers that cannot be a subscriber number", func(t *testing.T) {
		assert.Empty(t, Phone("555-1234"))
		assert.Empty(t, Phone("123456789012"))
		assert.Empty(t, Phone("no digits here"))
		assert.Empty(t, Phone(""))
	})
}

func TestAddress(t *testing.T) {
	t.Run("canonical key is stable across renderings", func(t *testing.T) {
		a := Address("15999 Coast Highway, Valley Ford, CA 94972")
		b := Address("15999 coast hwy valley ford ca 94972")
		assert.Equal(t, a, b)
		assert.NotEmpty(t, a)
	})

	t.Run("unit designators collapse", func(t *testing.T) {
		a := Address("210 Main St Apt 4")
		b := Address("210 Main Street #4")
		c := Address("210 main st unit 4")
		assert.Equal(t, a, b)
		assert.Equal(t, a, c)
	})

	t.Run("punctuation and case do not matter", func(t *testing.T) {
		assert.Equal(t,
			Address("1275 4th St., Santa Rosa"),
			Address("1275  4TH STREET SANTA ROSA"))
	})

	t.Run("unusable input yields empty key", func(t *testing.T) {
		assert.Empty(t, Address(""))
		assert.Empty(t, Address("--"))
	})
}

func TestName(t *testing.T) {
	assert.Equal(t, "jane doe", Name("  Jane   DOE "))
	assert.Empty(t, Name("   "))
}

func TestNameSimilarity(t *testing.T) {
	t.Run("identical names score 1", func(t *testing.T) {
		assert.InDelta(t, 1.0, NameSimilarity("Jane Doe", "jane doe"), 0.001)
	})

	t.Run("close names score high", func(t *testing.T) {
		assert.Greater(t, NameSimilarity("Jane Doe", "Jane Does"), 0.85)
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		assert.Less(t, NameSimilarity("Jane Doe", "Robert Smith"), 0.4)
	})

	t.Run("empty names score zero", func(t *testing.T) {
		assert.Zero(t, NameSimilarity("", "Jane"))
	})
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("abc", "abc"))
	assert.Equal(t, 1, Levenshtein("abc", "abd"))
	assert.Equal(t, 3, Levenshtein("", "abc"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
}
