package persist_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/calvinalkan/persist"
)

// intRead and intWrite serialize an int as a fixed 8-byte little-endian value. Used
// across this package's tests as a minimal, deterministic T.
func intRead(_ context.Context, r persist.Reader) (int, error) {
	var buf [8]byte

	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, fmt.Errorf("read int: %w", err)
	}

	return int(binary.LittleEndian.Uint64(buf[:])), nil
}

func intWrite(_ context.Context, v int, w persist.Writer) error {
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(v))

	_, err := w.Write(buf[:])
	if err != nil {
		return fmt.Errorf("write int: %w", err)
	}

	return nil
}
