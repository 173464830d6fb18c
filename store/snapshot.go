package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/facesearch/blobstore"
	"github.com/hupe1980/facesearch/codec"
)

// Snapshot container layout:
//
//  1. header (magic/version/codec name/compression name)
//  2. payload (codec-marshaled record slice, compressed)
//
// The header makes the blob self-describing so the default codec or
// compression can change without breaking existing snapshots.
var snapshotMagic = [4]byte{'F', 'S', 'N', '1'}

const snapshotFormatVersion uint16 = 1

// SnapshotOptions control how snapshots are encoded.
type SnapshotOptions struct {
	// Codec marshals the record slice. Defaults to codec.Default.
	Codec codec.Codec

	// Compression compresses the marshaled payload.
	// Defaults to DefaultCompression.
	Compression Compression
}

func (o SnapshotOptions) withDefaults() SnapshotOptions {
	if o.Codec == nil {
		o.Codec = codec.Default
	}
	if o.Compression == nil {
		o.Compression = DefaultCompression
	}
	return o
}

// Save serializes the full current record sequence and writes it to the
// named blob, replacing any previous snapshot. It is called once per
// ingestion batch, not per record, trading a small window of possible data
// loss for reduced I/O.
func (s *Store) Save(ctx context.Context, bs blobstore.BlobStore, name string, opts SnapshotOptions) error {
	opts = opts.withDefaults()

	payload, err := opts.Codec.Marshal(s.All())
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	payload, err = opts.Compression.Compress(payload)
	if err != nil {
		return fmt.Errorf("store: compress snapshot: %w", err)
	}

	codecName := opts.Codec.Name()
	compName := opts.Compression.Name()

	// Header: magic(4) version(2) codecLen(2) compLen(2) codec comp
	blob := make([]byte, 0, 10+len(codecName)+len(compName)+len(payload))
	blob = append(blob, snapshotMagic[:]...)
	blob = binary.LittleEndian.AppendUint16(blob, snapshotFormatVersion)
	blob = binary.LittleEndian.AppendUint16(blob, uint16(len(codecName)))
	blob = binary.LittleEndian.AppendUint16(blob, uint16(len(compName)))
	blob = append(blob, codecName...)
	blob = append(blob, compName...)
	blob = append(blob, payload...)

	if err := bs.Put(ctx, name, blob); err != nil {
		return fmt.Errorf("store: write snapshot %q: %w", name, err)
	}
	return nil
}

// Load replaces the store contents from the named snapshot blob.
//
// A missing blob yields blobstore.ErrNotFound; a corrupt blob yields a
// decoding error. In both cases the store is left empty, never partially
// loaded. Callers treat any error as "start empty", not as fatal.
func (s *Store) Load(ctx context.Context, bs blobstore.BlobStore, name string) error {
	blob, err := bs.Get(ctx, name)
	if err != nil {
		return err
	}

	records, err := decodeSnapshot(blob)
	if err != nil {
		return err
	}
	s.replace(records)
	return nil
}

func decodeSnapshot(blob []byte) ([]FaceRecord, error) {
	if len(blob) < 10 || [4]byte(blob[0:4]) != snapshotMagic {
		return nil, fmt.Errorf("store: unsupported snapshot format: bad magic")
	}
	version := binary.LittleEndian.Uint16(blob[4:6])
	if version != snapshotFormatVersion {
		return nil, fmt.Errorf("store: unsupported snapshot version %d", version)
	}
	codecLen := int(binary.LittleEndian.Uint16(blob[6:8]))
	compLen := int(binary.LittleEndian.Uint16(blob[8:10]))
	if len(blob) < 10+codecLen+compLen {
		return nil, fmt.Errorf("store: truncated snapshot header")
	}
	codecName := string(blob[10 : 10+codecLen])
	compName := string(blob[10+codecLen : 10+codecLen+compLen])

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("store: unsupported snapshot codec %q", codecName)
	}
	comp, ok := CompressionByName(compName)
	if !ok {
		return nil, fmt.Errorf("store: unsupported snapshot compression %q", compName)
	}

	payload, err := comp.Decompress(blob[10+codecLen+compLen:])
	if err != nil {
		return nil, fmt.Errorf("store: decompress snapshot: %w", err)
	}

	var records []FaceRecord
	if err := c.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	return records, nil
}
