package store

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression compresses and decompresses snapshot payloads.
//
// Like the codec, the compression name is recorded in the snapshot header so
// older snapshots keep decoding after the default changes.
type Compression interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// CompressionByName returns a built-in compression by its stable name.
func CompressionByName(name string) (Compression, bool) {
	switch name {
	case "none":
		return NoCompression{}, true
	case "zstd":
		return ZstdCompression{}, true
	case "lz4":
		return LZ4Compression{}, true
	default:
		return nil, false
	}
}

// DefaultCompression is used for newly written snapshots.
var DefaultCompression Compression = ZstdCompression{}

// NoCompression stores the payload as-is.
type NoCompression struct{}

// Name returns "none".
func (NoCompression) Name() string { return "none" }

// Compress returns the data unchanged.
func (NoCompression) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress returns the data unchanged.
func (NoCompression) Decompress(data []byte) ([]byte, error) { return data, nil }

// ZstdCompression compresses with zstd at the default speed/ratio level.
type ZstdCompression struct{}

// Name returns "zstd".
func (ZstdCompression) Name() string { return "zstd" }

// Compress encodes the payload as a zstd frame.
func (ZstdCompression) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Decompress decodes a zstd frame.
func (ZstdCompression) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// LZ4Compression compresses with the lz4 frame format (fast, lower ratio).
type LZ4Compression struct{}

// Name returns "lz4".
func (LZ4Compression) Name() string { return "lz4" }

// Compress encodes the payload as an lz4 frame.
func (LZ4Compression) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes an lz4 frame.
func (LZ4Compression) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
