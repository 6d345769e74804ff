package persistence

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"lukechampine.com/blake3"

	"github.com/talgya/hinterland/internal/engine"
)

// Compression names accepted by Marshal.
const (
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
	CompressionNone = "none"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// Marshal encodes w as JSON and frames it with the named compression.
// An empty name means none.
func Marshal(w *engine.World, compression string) ([]byte, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	return compress(raw, compression)
}

// Encoder returns an engine.Encoder using the named compression.
func Encoder(compression string) engine.Encoder {
	return func(w *engine.World) ([]byte, error) {
		return Marshal(w, compression)
	}
}

// Unmarshal decodes a blob written by Marshal, detecting the framing from
// its magic bytes. The result still needs World.Attach before use.
func Unmarshal(blob []byte) (*engine.World, error) {
	raw, err := decompress(blob)
	if err != nil {
		return nil, err
	}
	var w engine.World
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	return &w, nil
}

// Digest is the hex blake3-256 of blob.
func Digest(blob []byte) string {
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func compress(raw []byte, compression string) ([]byte, error) {
	switch compression {
	case CompressionZstd:
		enc, _, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionNone, "":
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

func decompress(blob []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(blob, zstdMagic):
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		raw, err := dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return raw, nil
	case bytes.HasPrefix(blob, lz4Magic):
		raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return raw, nil
	default:
		return blob, nil
	}
}
