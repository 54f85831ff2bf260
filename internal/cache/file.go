package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/pokeapi/internal/constants"
	"github.com/fivetwenty-io/pokeapi/pkg/pokeapi"
)

// fileFormatVersion is bumped when the container layout changes; other versions load as empty.
const fileFormatVersion = 2

// containerFile is the on-disk layout of one endpoint container.
type containerFile struct {
	Version  int               `json:"version"`
	Endpoint string            `json:"endpoint"`
	Entries  map[string][]byte `json:"entries"`
}

// FileBackend keeps one <endpoint>.cache file per endpoint in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed. A directory that cannot be created is
// reported as pokeapi.ErrCacheUnavailable.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, constants.ConfigDirPerm); err != nil {
		return nil, fmt.Errorf("%w: creating cache directory: %w", pokeapi.ErrCacheUnavailable, err)
	}

	return &FileBackend{dir: dir}, nil
}

// Load reads the container file of endpoint.
func (b *FileBackend) Load(ctx context.Context, endpoint string) (map[string][]byte, error) {
	data, err := os.ReadFile(b.path(endpoint))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][]byte{}, nil
	}

	if err != nil {
		return nil, err
	}

	var file containerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCorruptContainer, b.path(endpoint), err)
	}

	if file.Version != fileFormatVersion || file.Entries == nil {
		return map[string][]byte{}, nil
	}

	return file.Entries, nil
}

// Save rewrites the container file of endpoint atomically.
func (b *FileBackend) Save(ctx context.Context, endpoint string, snapshot *Snapshot) error {
	if len(snapshot.Entries) == 0 {
		err := os.Remove(b.path(endpoint))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		return nil
	}

	data, err := json.Marshal(containerFile{
		Version:  fileFormatVersion,
		Endpoint: endpoint,
		Entries:  snapshot.Entries,
	})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", endpoint, err)
	}

	return writeFileAtomic(b.path(endpoint), data)
}

// Close does nothing; files are closed after every write.
func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) path(endpoint string) string {
	return filepath.Join(b.dir, endpoint+constants.CacheFileExt)
}

// writeFileAtomic writes to a temp file in the same directory and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return err
	}

	if err := os.Chmod(tmpName, constants.ConfigFilePerm); err != nil {
		_ = os.Remove(tmpName)

		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return err
	}

	return nil
}
