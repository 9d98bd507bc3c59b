package navtex

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFramer(onlySitorB bool) (*Framer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewFramer(&buf, onlySitorB, NewLogger(&buf, LevelWarn)), &buf
}

func pushString(t *testing.T, f *Framer, s string, timeSec float64) {
	t.Helper()
	for i := 0; i < len(s); i++ {
		require.NoError(t, f.Push(s[i], timeSec))
	}
}

func TestFramerHeaderAndTrailer(t *testing.T) {
	f, buf := newTestFramer(false)

	pushString(t, f, "ZCZC EA01\r", 0)
	assert.True(t, f.headerFound)
	assert.Equal(t, byte('E'), f.origin)
	assert.Equal(t, byte('A'), f.subject)
	assert.Equal(t, 1, f.number)
	assert.Empty(t, buf.String(), "no message delivered yet")

	pushString(t, f, "HELLO WORLD\r\nNNNN", 1)
	assert.False(t, f.headerFound)
	assert.Contains(t, buf.String(), "HELLO WORLD")
	assert.NotContains(t, buf.String(), "[Lost")
}

func TestFramerLostHeader(t *testing.T) {
	f, buf := newTestFramer(false)

	pushString(t, f, "GARBLED TEXT\r\nNNNN", 0)
	assert.Contains(t, buf.String(), "[Lost header]:")
	assert.Contains(t, buf.String(), "GARBLED TEXT")
}

func TestFramerLostTrailer(t *testing.T) {
	f, _ := newTestFramer(false)

	pushString(t, f, "ZCZC EA01\r", 0)
	buf2 := &bytes.Buffer{}
	f.out = buf2

	pushString(t, f, "FIRST MESSAGE", 1)
	pushString(t, f, "ZCZC EA02\r", 2)

	assert.Contains(t, buf2.String(), "FIRST MESSAGE")
	assert.Contains(t, buf2.String(), ":[Lost trailer]")
	assert.True(t, f.headerFound)
	assert.Equal(t, 2, f.number)
}

func TestFramerTimeout(t *testing.T) {
	f, buf := newTestFramer(false)
	pushString(t, f, "ZCZC EA01\rSOME TEXT", 0)

	require.NoError(t, f.CheckTimeout(500))
	assert.Empty(t, buf.String())

	require.NoError(t, f.CheckTimeout(601))
	assert.Contains(t, buf.String(), "SOME TEXT")
	assert.Contains(t, buf.String(), ":<TIMEOUT>")
}

func TestFramerOnlySitorBNeverAnnotates(t *testing.T) {
	f, buf := newTestFramer(true)
	pushString(t, f, "ZCZC EA01\rHELLO\r\nNNNN", 0)
	require.NoError(t, f.CheckTimeout(10000))

	assert.Empty(t, buf.String(), "sitor-b mode never frames or delivers messages")
}

func TestCleanupWhitespaceCollapsesRuns(t *testing.T) {
	in := "  \r\n\r\nHELLO   \t\tWORLD\r\r\n\nBYE"
	out := cleanupWhitespace(in)
	assert.Equal(t, "HELLO WORLD\nBYE", out)
}

func TestCleanupWhitespaceEmpty(t *testing.T) {
	assert.Equal(t, "", cleanupWhitespace(""))
	assert.Equal(t, "", cleanupWhitespace("   \r\n\t"))
}

func TestDetectHeaderAcceptsDigitOriginAndSubject(t *testing.T) {
	f, _ := newTestFramer(false)
	pushString(t, f, "ZCZC 1234\r", 0)
	assert.True(t, f.headerFound, "origin/subject need only be alnum, and digits qualify")
	assert.Equal(t, byte('1'), f.origin)
	assert.Equal(t, byte('2'), f.subject)
	assert.Equal(t, 34, f.number)
}

func TestDetectHeaderRejectsNonAlnumOrigin(t *testing.T) {
	f, _ := newTestFramer(false)
	pushString(t, f, "ZCZC @A01\r", 0)
	assert.False(t, f.headerFound)
}

func TestDetectHeaderRejectsNonDigitNumber(t *testing.T) {
	f, _ := newTestFramer(false)
	pushString(t, f, "ZCZC EAxx\r", 0)
	assert.False(t, f.headerFound)
}

func TestDetectHeaderRejectsBadTerminator(t *testing.T) {
	f, _ := newTestFramer(false)
	pushString(t, f, "ZCZC EA01X", 0)
	assert.False(t, f.headerFound)
	assert.False(t, strings.Contains(string(f.curMsg), "\x00"))
}
