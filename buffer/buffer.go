// Package buffer provides a dynamically-growing byte sequence used
// throughout vosftp for building wire and protocol text without the
// repeated copies a naive string-concatenation approach would incur.
package buffer

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// minSize is the smallest capacity a non-empty Buffer grows to.
const minSize = 64

// A Buffer is a growable, single-owner sequence of bytes. The zero
// value is an empty Buffer ready to use. A Buffer must not be copied
// after first use; to transfer its contents, use MoveTo.
type Buffer struct {
	b []byte
}

// Len returns the number of bytes currently held by b.
func (b *Buffer) Len() int { return len(b.b) }

// Bytes returns the buffer's contents. The slice is valid only until
// the next mutating call on b.
func (b *Buffer) Bytes() []byte { return b.b }

// String returns the buffer's contents as a string.
func (b *Buffer) String() string { return string(b.b) }

// Grow ensures b can hold at least n bytes without reallocating,
// doubling capacity until it is sufficient.
func (b *Buffer) Grow(n int) {
	if cap(b.b) >= n {
		return
	}
	newCap := cap(b.b)
	if newCap < minSize {
		newCap = minSize
	}
	for newCap < n {
		newCap *= 2
	}
	nb := make([]byte, len(b.b), newCap)
	copy(nb, b.b)
	b.b = nb
}

// AppendByte appends a single byte to b.
func (b *Buffer) AppendByte(c byte) {
	b.Grow(len(b.b) + 1)
	b.b = append(b.b, c)
}

// AppendBytes appends p to b.
func (b *Buffer) AppendBytes(p []byte) {
	b.Grow(len(b.b) + len(p))
	b.b = append(b.b, p...)
}

// AppendString appends s to b.
func (b *Buffer) AppendString(s string) {
	b.Grow(len(b.b) + len(s))
	b.b = append(b.b, s...)
}

// AppendInt appends the base-n representation of v, for base in
// 2..16. Bases outside that range are treated as base 10.
func (b *Buffer) AppendInt(v int64, base int) {
	if base < 2 || base > 16 {
		base = 10
	}
	b.AppendString(strconv.FormatInt(v, base))
}

// Reset empties b without releasing its underlying storage.
func (b *Buffer) Reset() {
	b.b = b.b[:0]
}

// MoveTo transfers ownership of b's contents to dst, emptying b.
// dst's previous contents, if any, are discarded.
func (b *Buffer) MoveTo(dst *Buffer) {
	dst.b = b.b
	b.b = nil
}

// Trim removes leading and trailing ASCII whitespace from b in place.
// Trim is idempotent: Trim(Trim(x)) == Trim(x).
func (b *Buffer) Trim() {
	start := 0
	for start < len(b.b) && isSpace(b.b[start]) {
		start++
	}
	end := len(b.b)
	for end > start && isSpace(b.b[end-1]) {
		end--
	}
	if start == 0 && end == len(b.b) {
		return
	}
	n := copy(b.b, b.b[start:end])
	b.b = b.b[:n]
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Printf appends the formatted result of fmt and args to b. It
// supports the conversions c, d, i, s, f, and %; any other
// conversion character is emitted literally, preceded by a '%'.
func (b *Buffer) Printf(format string, args ...interface{}) {
	ai := 0
	next := func() interface{} {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return nil
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			b.AppendByte(c)
			continue
		}
		i++
		verb := format[i]
		switch verb {
		case '%':
			b.AppendByte('%')
		case 'c':
			switch v := next().(type) {
			case rune:
				var buf [utf8.UTFMax]byte
				n := utf8.EncodeRune(buf[:], v)
				b.AppendBytes(buf[:n])
			case int:
				var buf [utf8.UTFMax]byte
				n := utf8.EncodeRune(buf[:], rune(v))
				b.AppendBytes(buf[:n])
			case byte:
				b.AppendByte(v)
			}
		case 'd', 'i':
			switch v := next().(type) {
			case int:
				b.AppendInt(int64(v), 10)
			case int64:
				b.AppendInt(v, 10)
			case int32:
				b.AppendInt(int64(v), 10)
			case uint64:
				b.AppendString(strconv.FormatUint(v, 10))
			}
		case 's':
			switch v := next().(type) {
			case string:
				b.AppendString(v)
			case []byte:
				b.AppendBytes(v)
			case fmt.Stringer:
				b.AppendString(v.String())
			}
		case 'f':
			switch v := next().(type) {
			case float64:
				b.AppendString(strconv.FormatFloat(v, 'f', -1, 64))
			case float32:
				b.AppendString(strconv.FormatFloat(float64(v), 'f', -1, 32))
			}
		default:
			b.AppendByte('%')
			b.AppendByte(verb)
		}
	}
}
