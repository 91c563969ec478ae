package automerge

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"
)

// columnType is the encoding of a column, stored in the low three bits of its spec.
type columnType uint32

const (
	columnGroup      columnType = 0
	columnActor      columnType = 1
	columnInteger    columnType = 2
	columnDelta      columnType = 3
	columnBoolean    columnType = 4
	columnString     columnType = 5
	columnValueMeta  columnType = 6
	columnValueBytes columnType = 7
)

const columnDeflateBit columnSpec = 1 << 3

// columnSpec packs a column id, a deflate flag and a column type.
type columnSpec uint32

func newColumnSpec(id uint32, typ columnType) columnSpec {
	return columnSpec(id<<4 | uint32(typ))
}

func (s columnSpec) id() uint32        { return uint32(s) >> 4 }
func (s columnSpec) kind() columnType  { return columnType(s & 0x7) }
func (s columnSpec) deflated() bool    { return s&columnDeflateBit != 0 }
func (s columnSpec) normal() columnSpec { return s &^ columnDeflateBit }

// Op columns shared by change chunks and document chunks. Document chunks
// additionally store op ids, and successors (id 8) in place of predecessors (id 7).
var (
	colObjActor   = newColumnSpec(0, columnActor)
	colObjCounter = newColumnSpec(0, columnInteger)
	colKeyActor   = newColumnSpec(1, columnActor)
	colKeyCounter = newColumnSpec(1, columnDelta)
	colKeyString  = newColumnSpec(1, columnString)
	colIDActor    = newColumnSpec(2, columnActor)
	colIDCounter  = newColumnSpec(2, columnDelta)
	colInsert     = newColumnSpec(3, columnBoolean)
	colAction     = newColumnSpec(4, columnInteger)
	colValueMeta  = newColumnSpec(5, columnValueMeta)
	colValueRaw   = newColumnSpec(5, columnValueBytes)
	colPredGroup  = newColumnSpec(7, columnGroup)
	colPredActor  = newColumnSpec(7, columnActor)
	colPredCount  = newColumnSpec(7, columnDelta)
	colSuccGroup  = newColumnSpec(8, columnGroup)
	colSuccActor  = newColumnSpec(8, columnActor)
	colSuccCount  = newColumnSpec(8, columnDelta)
	colExpand     = newColumnSpec(9, columnBoolean)
	colMarkName   = newColumnSpec(10, columnString)
)

// Change metadata columns of document chunks.
var (
	colChangeActor     = newColumnSpec(0, columnActor)
	colChangeSeq       = newColumnSpec(0, columnDelta)
	colChangeMaxOp     = newColumnSpec(1, columnDelta)
	colChangeTime      = newColumnSpec(2, columnDelta)
	colChangeMessage   = newColumnSpec(3, columnString)
	colChangeDepsGroup = newColumnSpec(4, columnGroup)
	colChangeDepsIndex = newColumnSpec(4, columnDelta)
	colChangeExtraMeta = newColumnSpec(5, columnValueMeta)
	colChangeExtraRaw  = newColumnSpec(5, columnValueBytes)
)

// A run-length header lets a few bytes claim any number of rows, so the rows
// decoded from one set of columns are bounded by the size of its data:
// minRows plus rowsPerByte for every byte after inflation.
const (
	minRows     = 1 << 24
	rowsPerByte = 1 << 10
)

type columnMeta struct {
	spec   columnSpec
	length int
}

// columnSet maps normalized specs to (inflated) column data.
type columnSet map[columnSpec][]byte

func readColumnLayout(r *reader) ([]columnMeta, error) {
	n, err := r.uleb()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, ErrTruncated
	}
	metas := make([]columnMeta, 0, n)
	var last columnSpec
	for i := uint64(0); i < n; i++ {
		spec, err := r.uleb()
		if err != nil {
			return nil, err
		}
		if spec > math.MaxUint32 {
			return nil, fmt.Errorf("%w: column spec %d out of range", ErrMalformed, spec)
		}
		length, err := r.uleb()
		if err != nil {
			return nil, err
		}
		cs := columnSpec(spec)
		if i > 0 && cs.normal() <= last {
			return nil, fmt.Errorf("%w: columns out of order (%d after %d)", ErrMalformed, cs.normal(), last)
		}
		if length > math.MaxInt32 {
			return nil, ErrTruncated
		}
		last = cs.normal()
		metas = append(metas, columnMeta{spec: cs, length: int(length)})
	}
	return metas, nil
}

func readColumns(r *reader, metas []columnMeta) (columnSet, error) {
	cols := make(columnSet, len(metas))
	for _, m := range metas {
		data, err := r.bytes(m.length)
		if err != nil {
			return nil, err
		}
		if m.spec.deflated() {
			if data, err = inflate(data); err != nil {
				return nil, err
			}
		}
		cols[m.spec.normal()] = data
	}
	return cols, nil
}

// rowLimit returns the most rows the columns may decode to.
func (c columnSet) rowLimit() uint64 {
	var size uint64
	for _, data := range c {
		size += uint64(len(data))
	}
	if size > (math.MaxInt-minRows)/rowsPerByte {
		return math.MaxInt
	}
	return minRows + size*rowsPerByte
}

func (c columnSet) reader(spec columnSpec) *reader {
	return newReader(c[spec])
}

func inflate(data []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
	}
	return out, nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rleDecoder reads a run-length encoded column. Each run header is an sleb:
// n > 0 repeats the following value n times, n < 0 introduces -n literal
// values, and 0 is followed by a uleb count of nulls. Reading past the end of
// the column yields nulls.
type rleDecoder[T any] struct {
	r       *reader
	read    func(*reader) (T, error)
	count   uint64
	literal bool
	null    bool
	val     T
}

func newRLEDecoder[T any](r *reader, read func(*reader) (T, error)) *rleDecoder[T] {
	return &rleDecoder[T]{r: r, read: read}
}

func ulebDecoder(r *reader) *rleDecoder[uint64] {
	return newRLEDecoder(r, (*reader).uleb)
}

func stringDecoder(r *reader) *rleDecoder[string] {
	return newRLEDecoder(r, (*reader).str)
}

func (d *rleDecoder[T]) done() bool {
	return d.count == 0 && d.r.done()
}

// next returns the next value and whether it is non-null.
func (d *rleDecoder[T]) next() (T, bool, error) {
	var zero T
	for d.count == 0 {
		if d.r.done() {
			return zero, false, nil
		}
		n, err := d.r.sleb()
		if err != nil {
			return zero, false, err
		}
		switch {
		case n > 0:
			v, err := d.read(d.r)
			if err != nil {
				return zero, false, err
			}
			d.count, d.literal, d.null, d.val = uint64(n), false, false, v
		case n < 0:
			if n == math.MinInt64 {
				return zero, false, fmt.Errorf("%w: literal run too long", ErrMalformed)
			}
			d.count, d.literal, d.null = uint64(-n), true, false
		default:
			nulls, err := d.r.uleb()
			if err != nil {
				return zero, false, err
			}
			if nulls == 0 {
				return zero, false, fmt.Errorf("%w: empty null run", ErrMalformed)
			}
			d.count, d.literal, d.null = nulls, false, true
		}
	}
	d.count--
	switch {
	case d.null:
		return zero, false, nil
	case d.literal:
		v, err := d.read(d.r)
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	default:
		return d.val, true, nil
	}
}

// deltaDecoder reads a column of sleb deltas and yields running sums.
type deltaDecoder struct {
	rle *rleDecoder[int64]
	abs int64
}

func newDeltaDecoder(r *reader) *deltaDecoder {
	return &deltaDecoder{rle: newRLEDecoder(r, (*reader).sleb)}
}

func (d *deltaDecoder) done() bool { return d.rle.done() }

func (d *deltaDecoder) next() (int64, bool, error) {
	v, ok, err := d.rle.next()
	if err != nil || !ok {
		return 0, false, err
	}
	d.abs += v
	return d.abs, true, nil
}

// nextCounter is next for columns holding op counters, which are never negative.
func (d *deltaDecoder) nextCounter() (uint64, bool, error) {
	v, ok, err := d.next()
	if err != nil || !ok {
		return 0, ok, err
	}
	if v < 0 {
		return 0, false, fmt.Errorf("%w: negative counter %d", ErrMalformed, v)
	}
	return uint64(v), true, nil
}

// boolDecoder reads alternating uleb run lengths, starting with false.
type boolDecoder struct {
	r       *reader
	val     bool
	count   uint64
	started bool
}

func newBoolDecoder(r *reader) *boolDecoder {
	return &boolDecoder{r: r}
}

func (d *boolDecoder) next() (bool, error) {
	for d.count == 0 {
		if d.r.done() {
			return false, nil
		}
		n, err := d.r.uleb()
		if err != nil {
			return false, err
		}
		if d.started {
			d.val = !d.val
		}
		d.started = true
		d.count = n
	}
	d.count--
	return d.val, nil
}

// valueDecoder pairs a metadata column with the raw bytes column it indexes.
type valueDecoder struct {
	meta *rleDecoder[uint64]
	raw  *reader
}

func newValueDecoder(meta, raw *reader) *valueDecoder {
	return &valueDecoder{meta: ulebDecoder(meta), raw: raw}
}

func (d *valueDecoder) next() (ScalarValue, error) {
	m, ok, err := d.meta.next()
	if err != nil {
		return ScalarValue{}, err
	}
	if !ok {
		return NullValue(), nil
	}
	n := m >> 4
	if n > uint64(d.raw.remaining()) {
		return ScalarValue{}, fmt.Errorf("%w: value of %d bytes exceeds raw column", ErrTruncated, n)
	}
	b, err := d.raw.bytes(int(n))
	if err != nil {
		return ScalarValue{}, err
	}
	return decodeValue(m, b)
}

// actorTable resolves actor indexes stored in columns.
type actorTable []ActorID

func (t actorTable) get(idx uint64) (ActorID, error) {
	if idx >= uint64(len(t)) {
		return nil, fmt.Errorf("%w: actor index %d out of range (%d actors)", ErrMalformed, idx, len(t))
	}
	return t[idx], nil
}

// opIDDecoder reads an (actor, counter) column pair.
type opIDDecoder struct {
	actor   *rleDecoder[uint64]
	counter *deltaDecoder
	intCtr  *rleDecoder[uint64]
}

// readOpID returns the id, or ok=false when both columns are null.
func (d *opIDDecoder) readOpID(actors actorTable) (OpID, bool, error) {
	a, aok, err := d.actor.next()
	if err != nil {
		return OpID{}, false, err
	}
	var c uint64
	var cok bool
	if d.intCtr != nil {
		c, cok, err = d.intCtr.next()
	} else {
		c, cok, err = d.counter.nextCounter()
	}
	if err != nil {
		return OpID{}, false, err
	}
	if !aok && !cok {
		return OpID{}, false, nil
	}
	if aok != cok {
		return OpID{}, false, fmt.Errorf("%w: op id with only one of actor and counter", ErrMalformed)
	}
	actor, err := actors.get(a)
	if err != nil {
		return OpID{}, false, err
	}
	return OpID{Counter: c, Actor: actor}, true, nil
}
