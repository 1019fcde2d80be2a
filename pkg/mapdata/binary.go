package mapdata

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"ttr_router/pkg/graph"
	"ttr_router/pkg/region"
)

const (
	magicBytes = "TTRBOARD"
	version    = uint32(1)
	maxPlaces  = 1 << 16
	maxEdges   = 1 << 20
	maxRegions = 1 << 10
	maxNameLen = 1 << 10
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic      [8]byte
	Version    uint32
	NumPlaces  uint32
	NumEdges   uint32
	NumRegions uint32
}

// WriteBinary serializes a board to a snapshot file. The file is written to a
// temporary path and renamed into place, so readers never see a partial file.
func WriteBinary(path string, m *Map) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter
	g := m.Graph

	hdr := fileHeader{
		Version:    version,
		NumPlaces:  g.NumNodes,
		NumEdges:   g.NumEdges,
		NumRegions: uint32(len(m.Regions)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Places.
	for _, name := range g.Names {
		if err := writeString(w, name); err != nil {
			return fmt.Errorf("write place name: %w", err)
		}
	}
	if err := writeFloat64Slice(w, g.NodeLat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeFloat64Slice(w, g.NodeLon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}

	// Edges as parallel from/to/weight arrays in stored orientation.
	from := make([]uint32, 0, g.NumEdges)
	to := make([]uint32, 0, g.NumEdges)
	weight := make([]uint32, 0, g.NumEdges)
	for k, wt := range g.Edges() {
		a, _ := g.Index(k.A)
		b, _ := g.Index(k.B)
		from = append(from, a)
		to = append(to, b)
		weight = append(weight, wt)
	}
	if err := writeUint32Slice(w, from); err != nil {
		return fmt.Errorf("write EdgeFrom: %w", err)
	}
	if err := writeUint32Slice(w, to); err != nil {
		return fmt.Errorf("write EdgeTo: %w", err)
	}
	if err := writeUint32Slice(w, weight); err != nil {
		return fmt.Errorf("write EdgeWeight: %w", err)
	}

	// Regions: name, then length-prefixed member indices.
	for _, r := range m.Regions {
		if err := writeString(w, r.Name); err != nil {
			return fmt.Errorf("write region name: %w", err)
		}
		members := make([]uint32, 0, len(r.Places))
		for _, p := range r.Places {
			idx, ok := g.Index(p)
			if !ok {
				return fmt.Errorf("region %q: %w: %q", r.Name, graph.ErrUnknownPlace, p)
			}
			members = append(members, idx)
		}
		if err := writeLenPrefixedUint32(w, members); err != nil {
			return fmt.Errorf("write region %q: %w", r.Name, err)
		}
	}

	// Write CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary loads a board snapshot written by WriteBinary.
func ReadBinary(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	// Read and validate header.
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumPlaces > maxPlaces {
		return nil, fmt.Errorf("NumPlaces %d exceeds limit %d", hdr.NumPlaces, maxPlaces)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}
	if hdr.NumRegions > maxRegions {
		return nil, fmt.Errorf("NumRegions %d exceeds limit %d", hdr.NumRegions, maxRegions)
	}

	// Places.
	names := make([]string, hdr.NumPlaces)
	for i := range names {
		if names[i], err = readString(r); err != nil {
			return nil, fmt.Errorf("read place name %d: %w", i, err)
		}
	}
	lat, err := readFloat64Slice(r, int(hdr.NumPlaces))
	if err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	lon, err := readFloat64Slice(r, int(hdr.NumPlaces))
	if err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}

	// Edges.
	from, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeFrom: %w", err)
	}
	to, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeTo: %w", err)
	}
	weight, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read EdgeWeight: %w", err)
	}

	// Regions.
	regions := make(region.Set, hdr.NumRegions)
	for i := range regions {
		if regions[i].Name, err = readString(r); err != nil {
			return nil, fmt.Errorf("read region name %d: %w", i, err)
		}
		members, err := readLenPrefixedUint32(r, hdr.NumPlaces)
		if err != nil {
			return nil, fmt.Errorf("read region %q: %w", regions[i].Name, err)
		}
		for _, idx := range members {
			if idx >= hdr.NumPlaces {
				return nil, fmt.Errorf("region %q: member %d >= NumPlaces %d", regions[i].Name, idx, hdr.NumPlaces)
			}
			regions[i].Places = append(regions[i].Places, names[idx])
		}
	}

	// Read and validate CRC32.
	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	places := make([]graph.Place, hdr.NumPlaces)
	for i := range places {
		places[i] = graph.Place{Name: names[i], Lat: lat[i], Lon: lon[i]}
	}
	edges := make([]graph.Edge, hdr.NumEdges)
	for i := range edges {
		if from[i] >= hdr.NumPlaces || to[i] >= hdr.NumPlaces {
			return nil, fmt.Errorf("edge %d: endpoint out of range", i)
		}
		edges[i] = graph.Edge{From: names[from[i]], To: names[to[i]], Weight: weight[i]}
	}

	// Build re-checks every graph invariant.
	return Build(places, edges, regions)
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxNameLen {
		return fmt.Errorf("name too long: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int(n) > maxNameLen {
		return "", fmt.Errorf("name length %d exceeds limit %d", n, maxNameLen)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func writeLenPrefixedUint32(w io.Writer, s []uint32) error {
	n := uint32(len(s))
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return err
	}
	return writeUint32Slice(w, s)
}

// readLenPrefixedUint32 reads a uint32 length prefix, capped at limit, then
// the slice data.
func readLenPrefixedUint32(r io.Reader, limit uint32) ([]uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("length %d exceeds limit %d", n, limit)
	}
	return readUint32Slice(r, int(n))
}

// CRC32 wrapping writers/readers.

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
