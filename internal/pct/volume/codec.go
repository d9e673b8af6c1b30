package volume

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

// Full-featured 3D/4D scalar and vector image I/O is an external
// collaborator (spec §6); this codec is the minimal internal glue the
// cmd/* binaries use to pass a Volume between pipeline stages and is not
// meant to interoperate with any external image format.

const volumeMagic = "PCTV0001"

// WriteFile serialises v as a fixed binary header (magic, origin, spacing,
// size) followed by raw little-endian float32 voxel data.
func (v *Volume) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("volume: create %q: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(volumeMagic); err != nil {
		return err
	}
	header := []float64{v.Origin.X, v.Origin.Y, v.Origin.Z, v.Spacing.X, v.Spacing.Y, v.Spacing.Z}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	dims := []int32{int32(v.Nx), int32(v.Ny), int32(v.Nz)}
	for _, d := range dims {
		if err := binary.Write(w, binary.LittleEndian, d); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, v.Data); err != nil {
		return err
	}
	return w.Flush()
}

// ReadFile deserialises a Volume written by WriteFile.
func ReadFile(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("volume: open %q: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(volumeMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("volume: read magic: %w", err)
	}
	if string(magic) != volumeMagic {
		return nil, fmt.Errorf("volume: %q is not a pct volume file", path)
	}

	header := make([]float64, 6)
	for i := range header {
		if err := binary.Read(r, binary.LittleEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("volume: read header: %w", err)
		}
	}
	var nx, ny, nz int32
	for _, d := range []*int32{&nx, &ny, &nz} {
		if err := binary.Read(r, binary.LittleEndian, d); err != nil {
			return nil, fmt.Errorf("volume: read dims: %w", err)
		}
	}

	v := New(
		geom.Vec3{X: header[0], Y: header[1], Z: header[2]},
		geom.Vec3{X: header[3], Y: header[4], Z: header[5]},
		int(nx), int(ny), int(nz),
	)
	if err := binary.Read(r, binary.LittleEndian, v.Data); err != nil {
		return nil, fmt.Errorf("volume: read data: %w", err)
	}
	return v, nil
}
