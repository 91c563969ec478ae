package automerge

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

var magicBytes = []byte{0x85, 0x6f, 0x4a, 0x83}

// ChunkType identifies the payload of a storage chunk.
type ChunkType uint8

const (
	ChunkDocument   ChunkType = 0
	ChunkChange     ChunkType = 1
	ChunkCompressed ChunkType = 2
)

func (t ChunkType) String() string {
	switch t {
	case ChunkDocument:
		return "document"
	case ChunkChange:
		return "change"
	case ChunkCompressed:
		return "compressed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ChunkInfo describes one chunk of a loaded buffer.
type ChunkInfo struct {
	Type   ChunkType
	Offset int
	Size   int
	// Changes counts the changes the chunk contributed, including duplicates.
	Changes int
}

type chunk struct {
	typ      ChunkType
	checksum [4]byte
	// data is the chunk payload, inflated for compressed changes.
	data   []byte
	offset int
	size   int
}

// hashChunk computes the hash over a chunk type, its length and its payload.
func hashChunk(typ ChunkType, data []byte) ChangeHash {
	h := sha256.New()
	h.Write([]byte{byte(typ)})
	h.Write(appendUleb(nil, uint64(len(data))))
	h.Write(data)
	var out ChangeHash
	copy(out[:], h.Sum(nil))
	return out
}

// encodeChunk wraps a payload in the chunk header.
func encodeChunk(typ ChunkType, data []byte) ([]byte, ChangeHash) {
	hash := hashChunk(typ, data)
	buf := make([]byte, 0, len(data)+16)
	buf = append(buf, magicBytes...)
	buf = append(buf, hash[:4]...)
	buf = append(buf, byte(typ))
	buf = appendPrefixed(buf, data)
	return buf, hash
}

// readChunk parses and verifies the chunk starting at offset.
func readChunk(buf []byte, offset int) (chunk, error) {
	r := newReader(buf[offset:])
	magic, err := r.bytes(len(magicBytes))
	if err != nil {
		return chunk{}, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return chunk{}, ErrInvalidMagic
	}
	sum, err := r.bytes(4)
	if err != nil {
		return chunk{}, err
	}
	typ, err := r.bytes(1)
	if err != nil {
		return chunk{}, err
	}
	data, err := r.prefixed()
	if err != nil {
		return chunk{}, err
	}

	c := chunk{typ: ChunkType(typ[0]), data: data, offset: offset, size: r.off}
	copy(c.checksum[:], sum)

	hashType := c.typ
	switch c.typ {
	case ChunkDocument, ChunkChange:
	case ChunkCompressed:
		if c.data, err = inflate(data); err != nil {
			return chunk{}, err
		}
		hashType = ChunkChange
	default:
		return chunk{}, fmt.Errorf("%w %d", ErrUnknownChunkType, typ[0])
	}
	if h := hashChunk(hashType, c.data); !bytes.Equal(h[:4], c.checksum[:]) {
		return chunk{}, fmt.Errorf("%w: header %x, computed %x", ErrBadChecksum, c.checksum, h[:4])
	}
	return c, nil
}
