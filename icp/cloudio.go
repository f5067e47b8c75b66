package icp

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// RecordedCloudWidth, RecordedCloudHeight are the fixed dimensions of the
// persisted recorded-cloud format: a raw little-endian sequence
// of W*H records, each 8 IEEE-754 32-bit floats, row-major, no header.
const (
	RecordedCloudWidth  = 640
	RecordedCloudHeight = 480
)

// LoadCloud reads a persisted recorded cloud in the format above. It does
// not reconstruct from RGB-D imagery; that projection step lives in a
// separate, out-of-scope collaborator. LoadCloud only parses the already-8-D
// recorded wire format, useful for replaying frame pairs through the
// controller and for golden-file tests.
func LoadCloud(path string) (Cloud, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Cloud{}, fmt.Errorf("icp: reading recorded cloud: %w", err)
	}
	const recordBytes = pointStride * 4
	if len(data)%recordBytes != 0 {
		return Cloud{}, newInvalidShape("recorded cloud %s: %d bytes is not a multiple of record size %d", path, len(data), recordBytes)
	}

	n := len(data) / recordBytes
	c := MakeCloud(n)
	raw := c.Raw()
	for i := 0; i < n*pointStride; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		raw[i] = math.Float32frombits(bits)
	}
	return c, nil
}

// SaveCloud writes c to path in the recorded-cloud format above.
func SaveCloud(path string, c Cloud) error {
	raw := c.Raw()
	data := make([]byte, len(raw)*4)
	for i, v := range raw {
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(v))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("icp: writing recorded cloud: %w", err)
	}
	return nil
}
