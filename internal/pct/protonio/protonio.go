// Package protonio reads and writes proton-pair records: the list-mode
// input consumed by PPBin and PPBP. The on-disk format used throughout
// this package is this pipeline's own internal encoding of the "2D
// proton-pair image of 3-vector pixels" contract in the spec (full ROOT
// tree ingestion is a front-end-only external collaborator, out of scope
// here).
package protonio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/velocity.report/internal/pct/geom"
)

// Record is one proton pair: entry/exit position and direction, and either
// an energy pair or a precomputed WEPL (when EIn==0, EOut already holds
// the WEPL value in mm).
type Record struct {
	PIn, POut geom.Vec3
	DIn, DOut geom.Vec3
	EIn, EOut float64
	Nuclear   bool
}

const pairMagic = "PCTP0001"

// Writer streams Records to a file in this package's binary encoding.
type Writer struct {
	f *os.File
	w *bufio.Writer
	n int64
}

// Create opens path for writing and reserves space for the record count,
// patched in by Close.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("protonio: create %q: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(pairMagic); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, int64(0)); err != nil {
		return nil, err
	}
	return &Writer{f: f, w: w}, nil
}

// Write appends one record.
func (wr *Writer) Write(r Record) error {
	fields := []float64{
		r.PIn.X, r.PIn.Y, r.PIn.Z,
		r.POut.X, r.POut.Y, r.POut.Z,
		r.DIn.X, r.DIn.Y, r.DIn.Z,
		r.DOut.X, r.DOut.Y, r.DOut.Z,
		r.EIn, r.EOut,
	}
	for _, v := range fields {
		if err := binary.Write(wr.w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("protonio: write record: %w", err)
		}
	}
	var nuclear uint8
	if r.Nuclear {
		nuclear = 1
	}
	if err := binary.Write(wr.w, binary.LittleEndian, nuclear); err != nil {
		return fmt.Errorf("protonio: write record: %w", err)
	}
	wr.n++
	return nil
}

// Close flushes buffered output and patches in the final record count.
func (wr *Writer) Close() error {
	if err := wr.w.Flush(); err != nil {
		return err
	}
	if _, err := wr.f.Seek(int64(len(pairMagic)), io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(wr.f, binary.LittleEndian, wr.n); err != nil {
		return err
	}
	return wr.f.Close()
}

// Reader streams Records from a file written by Writer.
type Reader struct {
	f       *os.File
	r       *bufio.Reader
	remain  int64
	swapXZ  bool
}

// ReaderOption configures Open.
type ReaderOption func(*Reader)

// WithLomaLindaSwapXZ swaps the X and Z components of every position and
// direction vector on read, matching the Loma Linda ingestion tool's
// on-input convention. Whether downstream consumers expect this swap is
// part of the file-format contract between a given acquisition site and
// its analysis chain; this package treats the choice as the caller's.
func WithLomaLindaSwapXZ() ReaderOption {
	return func(r *Reader) { r.swapXZ = true }
}

// Open opens path for reading.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("protonio: open %q: %w", path, err)
	}
	br := bufio.NewReader(f)
	magic := make([]byte, len(pairMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("protonio: read magic: %w", err)
	}
	if string(magic) != pairMagic {
		return nil, fmt.Errorf("protonio: %q is not a pct proton-pair file", path)
	}
	var n int64
	if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("protonio: read count: %w", err)
	}
	rd := &Reader{f: f, r: br, remain: n}
	for _, opt := range opts {
		opt(rd)
	}
	return rd, nil
}

// Next reads the next record, returning io.EOF once all records have been
// consumed.
func (rd *Reader) Next() (Record, error) {
	if rd.remain <= 0 {
		return Record{}, io.EOF
	}
	var fields [14]float64
	for i := range fields {
		if err := binary.Read(rd.r, binary.LittleEndian, &fields[i]); err != nil {
			return Record{}, fmt.Errorf("protonio: read record: %w", err)
		}
	}
	var nuclear uint8
	if err := binary.Read(rd.r, binary.LittleEndian, &nuclear); err != nil {
		return Record{}, fmt.Errorf("protonio: read record: %w", err)
	}
	rd.remain--
	r := Record{
		PIn:     geom.Vec3{X: fields[0], Y: fields[1], Z: fields[2]},
		POut:    geom.Vec3{X: fields[3], Y: fields[4], Z: fields[5]},
		DIn:     geom.Vec3{X: fields[6], Y: fields[7], Z: fields[8]},
		DOut:    geom.Vec3{X: fields[9], Y: fields[10], Z: fields[11]},
		EIn:     fields[12],
		EOut:    fields[13],
		Nuclear: nuclear != 0,
	}
	if rd.swapXZ {
		r.PIn.X, r.PIn.Z = r.PIn.Z, r.PIn.X
		r.POut.X, r.POut.Z = r.POut.Z, r.POut.X
		r.DIn.X, r.DIn.Z = r.DIn.Z, r.DIn.X
		r.DOut.X, r.DOut.Z = r.DOut.Z, r.DOut.X
	}
	return r, nil
}

// Close releases the underlying file.
func (rd *Reader) Close() error { return rd.f.Close() }
