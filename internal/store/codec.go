package store

import (
	"encoding/binary"
	"fmt"

	"github.com/ugorji/go/codec"
)

// cborHandle is shared by every encoder and decoder. It is configured once at
// init and safe for concurrent use afterwards.
var cborHandle = func() *codec.CborHandle {
	h := new(codec.CborHandle)
	h.Canonical = true
	return h
}()

func encodeValue(v any) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, cborHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return b, nil
}

func decodeValue(b []byte, v any) error {
	if err := codec.NewDecoderBytes(b, cborHandle).Decode(v); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

// Uint64Key encodes v big-endian so keys sort in numeric order.
func Uint64Key(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// StringKey encodes s as raw bytes.
func StringKey(s string) []byte {
	return []byte(s)
}
