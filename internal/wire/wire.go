// Package wire frames cached payloads with a magic, a schema version, and
// the option flags the result was computed with. Strict validation on read
// lets the cache self-heal: anything that does not decode exactly is deleted
// and treated as a miss instead of being served with stale meaning.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("wire: corrupt entry")
	magic4     = [...]byte{'F', 'L', 'R', 'S'}
)

// Entry: magic(4) | ver(1) | flags(1) | vlen(u32 be) | payload(vlen)
func Encode(flags byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(flags)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the frame and returns the flags and payload. Trailing
// bytes are rejected: a frame must account for every byte it carries.
func Decode(b []byte) (flags byte, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	flags = b[5]

	vlen := int(binary.BigEndian.Uint32(b[6:10]))
	if vlen != len(b)-hdr {
		return 0, nil, ErrCorrupt
	}
	return flags, b[hdr:], nil
}
