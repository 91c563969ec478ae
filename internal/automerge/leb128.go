package automerge

import (
	"fmt"
	"unicode/utf8"
)

// reader consumes LEB128 integers and length-prefixed fields from a byte slice.
type reader struct {
	buf []byte
	off int
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

func (r *reader) done() bool {
	return r.off >= len(r.buf)
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

func (r *reader) uleb() (uint64, error) {
	var v uint64
	var shift uint
	for {
		if r.off >= len(r.buf) {
			return 0, ErrTruncated
		}
		b := r.buf[r.off]
		r.off++
		if shift == 63 && b > 1 {
			return 0, ErrOverflow
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
}

func (r *reader) sleb() (int64, error) {
	var v int64
	var shift uint
	for {
		if r.off >= len(r.buf) {
			return 0, ErrTruncated
		}
		b := r.buf[r.off]
		r.off++
		if shift == 63 && b != 0 && b != 0x7f {
			return 0, ErrOverflow
		}
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				v |= -1 << shift
			}
			return v, nil
		}
	}
}

// length reads a uleb that must fit in the remaining input.
func (r *reader) length() (int, error) {
	n, err := r.uleb()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.remaining()) {
		return 0, ErrTruncated
	}
	return int(n), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) prefixed() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	return r.bytes(n)
}

func (r *reader) str() (string, error) {
	b, err := r.prefixed()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid utf-8 string", ErrMalformed)
	}
	return string(b), nil
}

func appendUleb(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func appendSleb(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendPrefixed(b []byte, data []byte) []byte {
	b = appendUleb(b, uint64(len(data)))
	return append(b, data...)
}
