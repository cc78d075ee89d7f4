package bm25

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeEmitsCompoundAndComponents(t *testing.T) {
	tokens := Tokenize("ML-KEM.KeyGen")
	assert.Equal(t, []string{"ml-kem.keygen", "ml", "kem", "keygen"}, tokens)
}

func TestTokenizeLowercasesPlainWords(t *testing.T) {
	tokens := Tokenize("Algorithm 2 SHAKE128")
	assert.Equal(t, []string{"algorithm", "2", "shake128"}, tokens)
}

func TestTokenizeStripsOtherPunctuation(t *testing.T) {
	tokens := Tokenize("encaps(pk, m) -> (c, K)")
	assert.Equal(t, []string{"encaps", "pk", "m", "c", "k"}, tokens)
}

func TestTokenizeEmptyInput(t *testing.T) {
	assert.Empty(t, Tokenize(""))
}

func TestBleveTokenizerWrapsTokenize(t *testing.T) {
	stream := BleveTokenizer{}.Tokenize([]byte("ML-KEM"))
	require := assert.New(t)
	require.Len(stream, 3) // "ml-kem", "ml", "kem"
	require.Equal("ml-kem", string(stream[0].Term))
}
