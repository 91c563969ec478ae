package automerge

type rleState int

const (
	rleEmpty rleState = iota
	rleNullRun
	rleLoneVal
	rleRun
	rleLiteral
)

// rleEncoder writes the run-length encoding read by rleDecoder. Repeated
// values always form runs; distinct neighbours are grouped into literal runs.
// A column holding only nulls encodes to nothing.
type rleEncoder[T comparable] struct {
	buf      []byte
	write    func([]byte, T) []byte
	state    rleState
	last     T
	count    uint64
	literal  []T
	nonNulls bool
}

func newRLEEncoder[T comparable](write func([]byte, T) []byte) *rleEncoder[T] {
	return &rleEncoder[T]{write: write}
}

func ulebEncoder() *rleEncoder[uint64] {
	return newRLEEncoder(appendUleb)
}

func stringEncoder() *rleEncoder[string] {
	return newRLEEncoder(func(b []byte, s string) []byte {
		return appendPrefixed(b, []byte(s))
	})
}

func (e *rleEncoder[T]) append(v T) {
	e.nonNulls = true
	switch e.state {
	case rleEmpty:
		e.state, e.last = rleLoneVal, v
	case rleNullRun:
		e.flush()
		e.state, e.last = rleLoneVal, v
	case rleLoneVal:
		if v == e.last {
			e.state, e.count = rleRun, 2
		} else {
			e.state, e.literal, e.last = rleLiteral, append(e.literal[:0], e.last), v
		}
	case rleRun:
		if v == e.last {
			e.count++
		} else {
			e.flush()
			e.state, e.last = rleLoneVal, v
		}
	case rleLiteral:
		if v == e.last {
			e.flushLiteral(e.literal)
			e.state, e.count = rleRun, 2
		} else {
			e.literal = append(e.literal, e.last)
			e.last = v
		}
	}
}

func (e *rleEncoder[T]) appendNull() {
	switch e.state {
	case rleNullRun:
		e.count++
		return
	case rleEmpty:
	default:
		e.flush()
	}
	e.state, e.count = rleNullRun, 1
}

// appendOpt appends v when ok is set and a null otherwise.
func (e *rleEncoder[T]) appendOpt(v T, ok bool) {
	if ok {
		e.append(v)
	} else {
		e.appendNull()
	}
}

func (e *rleEncoder[T]) flushLiteral(vals []T) {
	e.buf = appendSleb(e.buf, -int64(len(vals)))
	for _, v := range vals {
		e.buf = e.write(e.buf, v)
	}
}

func (e *rleEncoder[T]) flush() {
	switch e.state {
	case rleNullRun:
		e.buf = appendSleb(e.buf, 0)
		e.buf = appendUleb(e.buf, e.count)
	case rleLoneVal:
		e.flushLiteral([]T{e.last})
	case rleRun:
		e.buf = appendSleb(e.buf, int64(e.count))
		e.buf = e.write(e.buf, e.last)
	case rleLiteral:
		e.flushLiteral(append(e.literal, e.last))
	}
	e.state, e.count, e.literal = rleEmpty, 0, e.literal[:0]
}

func (e *rleEncoder[T]) finish() []byte {
	if !e.nonNulls {
		return nil
	}
	e.flush()
	return e.buf
}

// deltaEncoder writes absolute values as RLE-encoded differences.
type deltaEncoder struct {
	rle *rleEncoder[int64]
	abs int64
}

func newDeltaEncoder() *deltaEncoder {
	return &deltaEncoder{rle: newRLEEncoder(appendSleb)}
}

func (e *deltaEncoder) append(v int64) {
	e.rle.append(v - e.abs)
	e.abs = v
}

func (e *deltaEncoder) appendNull()    { e.rle.appendNull() }
func (e *deltaEncoder) finish() []byte { return e.rle.finish() }

type boolEncoder struct {
	buf   []byte
	last  bool
	count uint64
}

func (e *boolEncoder) append(v bool) {
	if v == e.last {
		e.count++
		return
	}
	e.buf = appendUleb(e.buf, e.count)
	e.last, e.count = v, 1
}

func (e *boolEncoder) finish() []byte {
	if e.count > 0 {
		e.buf = appendUleb(e.buf, e.count)
	}
	return e.buf
}

type valueEncoder struct {
	meta *rleEncoder[uint64]
	raw  []byte
}

func newValueEncoder() *valueEncoder {
	return &valueEncoder{meta: ulebEncoder()}
}

func (e *valueEncoder) append(v ScalarValue) {
	meta, raw := v.encode()
	e.meta.append(meta)
	e.raw = append(e.raw, raw...)
}

// opIDEncoder writes an (actor index, counter) column pair.
type opIDEncoder struct {
	actor   *rleEncoder[uint64]
	counter *deltaEncoder
}

func newOpIDEncoder() *opIDEncoder {
	return &opIDEncoder{actor: ulebEncoder(), counter: newDeltaEncoder()}
}

type encodedColumn struct {
	spec columnSpec
	data []byte
}

// appendColumns writes column metadata followed by column data. Empty
// columns are omitted; specs must be given in ascending order.
func appendColumns(buf []byte, cols []encodedColumn) []byte {
	buf = appendColumnMeta(buf, cols)
	return appendColumnData(buf, cols)
}

func appendColumnMeta(buf []byte, cols []encodedColumn) []byte {
	n := 0
	for _, c := range cols {
		if len(c.data) > 0 {
			n++
		}
	}
	buf = appendUleb(buf, uint64(n))
	for _, c := range cols {
		if len(c.data) > 0 {
			buf = appendUleb(buf, uint64(c.spec))
			buf = appendUleb(buf, uint64(len(c.data)))
		}
	}
	return buf
}

func appendColumnData(buf []byte, cols []encodedColumn) []byte {
	for _, c := range cols {
		buf = append(buf, c.data...)
	}
	return buf
}
