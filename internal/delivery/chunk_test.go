package delivery

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplit_Short(t *testing.T) {
	assert.Equal(t, []string{"hello\nworld"}, Split("hello\nworld", 100))
	assert.Nil(t, Split("  \n ", 10))
}

func TestSplit_LineBoundaries(t *testing.T) {
	text := "aaaa\nbbbb\ncccc"
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, Split(text, 9))
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, Split(text, 8))
}

func TestSplit_LongLineIsCutByRunes(t *testing.T) {
	line := strings.Repeat("ж", 25)
	chunks := Split("head\n"+line+"\ntail", 10)

	assert.Equal(t, "head", chunks[0])
	assert.Equal(t, "tail", chunks[len(chunks)-1])
	assert.Len(t, chunks, 5)
	assert.Equal(t, line, strings.Join(chunks[1:4], ""))
}

func TestSplit_NeverExceedsLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString(strings.Repeat("x", i%37))
		b.WriteString("\n")
	}
	for _, limit := range []int{1, 5, 36, 100} {
		for _, c := range Split(b.String(), limit) {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), limit)
			assert.NotEmpty(t, strings.TrimSpace(c))
		}
	}
}

func TestSplit_PreservesContent(t *testing.T) {
	text := "Total: 150.00\nPaid by: A\nB owes 60.00 to A\nC owes 60.00 to A"
	chunks := Split(text, 20)
	assert.Equal(t, text, strings.Join(chunks, "\n"))
}
