package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/albertocavalcante/cix/internal/cicode/builtins"
)

// CacheProvider serves a builtins table from a binary cache file, falling
// back to Source and rewriting the cache when it is missing, unreadable or
// was written for a different Key.
//
// The cache is a protobuf-encoded google.protobuf.Struct. Readers and
// writers coordinate through a sibling ".lock" file so several processes
// can share one cache.
type CacheProvider struct {
	Path   string
	Key    string
	Source builtins.Provider
}

type cacheFile struct {
	Key       string         `json:"key"`
	Functions builtins.Table `json:"functions"`
}

// NewCacheProvider creates a cache in front of source.
func NewCacheProvider(path, key string, source builtins.Provider) *CacheProvider {
	return &CacheProvider{Path: path, Key: key, Source: source}
}

// Builtins implements builtins.Provider.
func (c *CacheProvider) Builtins() (builtins.Table, error) {
	t, err := c.read()
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Printf("builtins: ignoring cache %s: %v", c.Path, err)
	}

	t, err = c.Source.Builtins()
	if err != nil {
		return nil, err
	}
	if err := c.write(t); err != nil {
		log.Printf("builtins: writing cache %s: %v", c.Path, err)
	}
	return t, nil
}

func (c *CacheProvider) lockFile() string {
	return c.Path + ".lock"
}

var errStale = errors.New("cache key mismatch")

func (c *CacheProvider) read() (builtins.Table, error) {
	if _, err := os.Stat(c.Path); err != nil {
		return nil, err
	}
	lock := flock.New(c.lockFile())
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, err
	}
	key, t, err := DecodeCache(data)
	if err != nil {
		return nil, err
	}
	if key != c.Key {
		return nil, errStale
	}
	return t, nil
}

func (c *CacheProvider) write(t builtins.Table) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return err
	}
	data, err := EncodeCache(c.Key, t)
	if err != nil {
		return err
	}

	lock := flock.New(c.lockFile())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.Path)
}

// EncodeCache serializes a table as a binary protobuf Struct.
func EncodeCache(key string, t builtins.Table) ([]byte, error) {
	js, err := json.Marshal(cacheFile{Key: key, Functions: t})
	if err != nil {
		return nil, err
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(js, &s); err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	return proto.Marshal(&s)
}

// DecodeCache is the inverse of EncodeCache.
func DecodeCache(data []byte) (key string, t builtins.Table, err error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return "", nil, fmt.Errorf("decode cache: %w", err)
	}
	js, err := protojson.Marshal(&s)
	if err != nil {
		return "", nil, fmt.Errorf("decode cache: %w", err)
	}
	var cf cacheFile
	if err := json.Unmarshal(js, &cf); err != nil {
		return "", nil, fmt.Errorf("decode cache: %w", err)
	}
	if cf.Functions == nil {
		cf.Functions = make(builtins.Table)
	}
	return cf.Key, cf.Functions, nil
}
