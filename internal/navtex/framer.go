package navtex

import (
	"io"
	"strings"
)

// idleTimeout is how long the framer will wait for a trailer before
// force-delivering whatever it has accumulated.
const idleTimeout = 600.0 // seconds

// MinLoggedMessageLength is the minimum message length for delivery. The
// original decoder always logs regardless of length (min_siz_logged_msg ==
// 0); this is kept as a named constant per that open question rather than
// silently assumed. Nothing compares against it: every message is delivered.
const MinLoggedMessageLength = 0

const headerLen = 10

// Framer segments a stream of decoded characters into discrete messages
// framed by "ZCZC xxyy<CR/LF>" headers and "NNNN" trailers, annotating
// messages that lost their header or trailer and force-delivering on a
// 600-second idle timeout.
//
// When onlySitorB is set, header/trailer/timeout logic is bypassed entirely:
// the framer only tracks that data has arrived, since every decoded
// character is already raw output in that mode.
type Framer struct {
	onlySitorB bool
	out        io.Writer
	logger     *Logger

	curMsg      []byte
	origin      byte
	subject     byte
	number      int
	headerFound bool
	messageTime float64
}

// NewFramer builds a Framer delivering completed messages to out.
func NewFramer(out io.Writer, onlySitorB bool, logger *Logger) *Framer {
	f := &Framer{out: out, onlySitorB: onlySitorB, logger: logger}
	f.resetMsg()
	return f
}

func (f *Framer) resetMsg() {
	f.curMsg = f.curMsg[:0]
	f.origin = '?'
	f.subject = '?'
	f.number = 0
}

// Push appends a decoded character to the current message and runs header,
// trailer, and (implicitly, via CheckTimeout) idle-timeout detection.
func (f *Framer) Push(c byte, timeSec float64) error {
	f.curMsg = append(f.curMsg, c)

	if f.onlySitorB {
		f.headerFound = true
		f.messageTime = timeSec
		return nil
	}

	if found, prefix := f.detectHeader(); found {
		var err error
		switch {
		case f.headerFound:
			err = f.deliver(prefix + ":[Lost trailer]")
		case len(prefix) > 0:
			err = f.deliver("[Lost header]:" + prefix + ":[Lost trailer]")
		}
		f.headerFound = true
		f.messageTime = timeSec
		return err
	}

	if f.detectEnd() {
		return f.flush("", timeSec)
	}
	return nil
}

// CheckTimeout force-delivers the current message if it has been idle for
// more than 600 seconds. It is evaluated lazily at the start of each
// ProcessData call, using the receiver's running clock.
func (f *Framer) CheckTimeout(timeSec float64) error {
	if f.onlySitorB {
		return nil
	}
	if timeSec-f.messageTime <= idleTimeout {
		return nil
	}
	f.logger.Infof("timeout: time_sec=%v, message_time=%v", timeSec, f.messageTime)
	return f.flush(":<TIMEOUT>", timeSec)
}

// flush delivers the current message (annotating a missing header) and
// resets the framer's message buffer.
func (f *Framer) flush(extra string, timeSec float64) error {
	var err error
	if f.headerFound {
		f.headerFound = false
		err = f.deliver(string(f.curMsg) + extra)
	} else {
		err = f.deliver("[Lost header]:" + string(f.curMsg) + extra)
	}
	f.resetMsg()
	f.messageTime = timeSec
	return err
}

// deliver normalizes whitespace in text and writes it to the output sink as
// one chunk. MinLoggedMessageLength is always 0, so no message is ever
// filtered out here - see the constant's doc comment.
func (f *Framer) deliver(text string) error {
	clean := cleanupWhitespace(text)
	f.logger.Infof("%s", clean)
	_, err := io.WriteString(f.out, clean)
	return err
}

// detectHeader looks for a "ZCZC xxyy<CR|LF>" header at the tail of the
// current message. On a match it extracts origin/subject/number, clears the
// buffer, and returns the text that preceded the header.
func (f *Framer) detectHeader() (bool, string) {
	n := len(f.curMsg)
	if n < headerLen {
		return false, ""
	}
	comp := f.curMsg[n-headerLen:]
	if comp[0] != 'Z' || comp[1] != 'C' || comp[2] != 'Z' || comp[3] != 'C' || comp[4] != ' ' {
		return false, ""
	}
	if !isAlnum(comp[5]) || !isAlnum(comp[6]) || !isDigit(comp[7]) || !isDigit(comp[8]) {
		return false, ""
	}
	if comp[9] != '\n' && comp[9] != '\r' {
		return false, ""
	}

	prefix := string(f.curMsg[:n-headerLen])
	f.origin = comp[5]
	f.subject = comp[6]
	f.number = int(comp[7]-'0')*10 + int(comp[8]-'0')
	f.curMsg = f.curMsg[:0]
	return true, prefix
}

// detectEnd checks for a trailing "NNNN" trailer, stripping it in place.
func (f *Framer) detectEnd() bool {
	const trailer = "NNNN"
	n := len(f.curMsg)
	if n < len(trailer) {
		return false
	}
	if string(f.curMsg[n-len(trailer):]) != trailer {
		return false
	}
	f.curMsg = f.curMsg[:n-len(trailer)]
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// cleanupWhitespace collapses contiguous newline/carriage-return runs into a
// single '\n', contiguous space/tab runs into a single ' ', and drops
// leading whitespace before the first printable character.
func cleanupWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var wasDelim, wasSpace, seenChar bool
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n', '\r':
			wasDelim = true
		case ' ', '\t':
			wasSpace = true
		default:
			if seenChar {
				switch {
				case wasDelim:
					b.WriteByte('\n')
				case wasSpace:
					b.WriteByte(' ')
				}
			}
			wasDelim, wasSpace, seenChar = false, false, true
			b.WriteByte(c)
		}
	}
	return b.String()
}
