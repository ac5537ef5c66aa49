package geosite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Provider loads and caches geosite datasets so several source links can
// share one parsed file.
type Provider struct {
	cache sync.Map // map[string]*Data
}

// Shared is the process wide provider instance.
var Shared = NewProvider()

func NewProvider() *Provider {
	return &Provider{}
}

// Load parses the dataset at path. Results are cached per cleaned path, so
// repeated loads of the same file decode it once.
func (p *Provider) Load(path string) (*Data, error) {
	cleanPath := filepath.Clean(path)
	if value, ok := p.cache.Load(cleanPath); ok {
		return value.(*Data), nil
	}
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read geosite file failed, err:%w", err)
	}
	entries, err := decodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("parse geosite file failed, file:%s, err:%w", cleanPath, err)
	}
	dataset := newData(entries)
	actual, _ := p.cache.LoadOrStore(cleanPath, dataset)
	return actual.(*Data), nil
}
