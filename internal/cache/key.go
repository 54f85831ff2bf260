// Package cache implements the persistent response cache: lazily loaded
// per-endpoint containers of zstd-compressed raw responses, persisted through
// a pluggable Backend.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Key derives the cache key of a request. Identical requests always produce
// the same key.
func Key(endpoint, resource, url string) string {
	sum := sha256.Sum256([]byte(endpoint + "\x00" + resource + "\x00" + url))

	return hex.EncodeToString(sum[:])
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}

		decoder, codecErr = zstd.NewReader(nil)
	})

	return encoder, decoder, codecErr
}

// compress returns the zstd frame of raw.
func compress(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return []byte{}, nil
	}

	enc, _, err := codec()
	if err != nil {
		return nil, err
	}

	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// decompress reverses compress.
func decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return []byte{}, nil
	}

	_, dec, err := codec()
	if err != nil {
		return nil, err
	}

	return dec.DecodeAll(frame, nil)
}

// stampSize is the length of the big-endian unix-seconds header of an entry.
const stampSize = 8

var errShortEntry = errors.New("entry shorter than its header")

// encodeEntry returns the stored form of raw: the time it was stored followed by its zstd frame.
func encodeEntry(raw []byte, storedAt time.Time) ([]byte, error) {
	frame, err := compress(raw)
	if err != nil {
		return nil, err
	}

	entry := make([]byte, stampSize, stampSize+len(frame))
	binary.BigEndian.PutUint64(entry, uint64(storedAt.Unix())) // #nosec G115

	return append(entry, frame...), nil
}

// entryStoredAt returns the time an entry was stored.
func entryStoredAt(entry []byte) (time.Time, error) {
	if len(entry) < stampSize {
		return time.Time{}, errShortEntry
	}

	return time.Unix(int64(binary.BigEndian.Uint64(entry[:stampSize])), 0), nil // #nosec G115
}

// decodeEntry reverses encodeEntry.
func decodeEntry(entry []byte) ([]byte, error) {
	if len(entry) < stampSize {
		return nil, errShortEntry
	}

	return decompress(entry[stampSize:])
}
