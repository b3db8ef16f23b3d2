package hash

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/chazu/rpal/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of syntax trees.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Each node: tag byte, payload, uint32 child count, children in order
//   - Integer payload: int64 big-endian, so 007 and 7 serialize alike
//   - Identifier and string payload: uint32 big-endian length + UTF-8 bytes
//   - Positions are not serialized
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of a tree. The
// returned bytes are suitable for hashing with SHA-256.
func Serialize(root *compiler.Node) ([]byte, error) {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	if err := s.serializeNode(root); err != nil {
		return nil, err
	}
	return s.buf, nil
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(n *compiler.Node) error {
	if n == nil {
		return fmt.Errorf("hash: nil node")
	}
	tag, ok := kindTags[n.Kind]
	if !ok {
		return fmt.Errorf("hash: no tag for %s", n.Kind)
	}
	s.writeByte(tag)

	switch n.Kind {
	case compiler.KindInteger:
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("hash: integer literal %q: %w", n.Value, err)
		}
		s.writeInt64(v)
	case compiler.KindIdentifier, compiler.KindString:
		s.writeString(n.Value)
	}

	s.writeUint32(uint32(len(n.Children)))
	for _, child := range n.Children {
		if err := s.serializeNode(child); err != nil {
			return err
		}
	}
	return nil
}
