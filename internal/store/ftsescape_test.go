package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeFTSQuery_QuotesEachToken(t *testing.T) {
	assert.Equal(t, `"hello" "world"`, escapeFTSQuery("hello world"))
}

func TestEscapeFTSQuery_EscapesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `"say" """hi"""`, escapeFTSQuery(`say "hi"`))
}

func TestEscapeFTSQuery_NeutralizesOperatorCharacters(t *testing.T) {
	assert.Equal(t, `"foo*" "(bar)" "a-b"`, escapeFTSQuery("foo* (bar) a-b"))
}

func TestEscapeFTSQuery_EmptyInput(t *testing.T) {
	assert.Equal(t, `""`, escapeFTSQuery(""))
	assert.Equal(t, `""`, escapeFTSQuery("   "))
}
