// Package vanilla — автономный хост: встроенный реестр блоков и биомы на
// шуме Перлина. Позволяет запускать генератор без игрового сервера.
package vanilla

import (
	_ "embed"
	"fmt"

	"github.com/annel0/skygrid/internal/host"
	"gopkg.in/yaml.v3"
)

//go:embed blocks.yaml
var blocksYAML []byte

// Registry — неизменяемый реестр блоков с сохранённым порядком
type Registry struct {
	blocks []host.BlockInfo
	byID   map[host.BlockID]int
}

type registryFile struct {
	Blocks []host.BlockInfo `yaml:"blocks"`
}

// ParseRegistry разбирает YAML-описание реестра
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse block registry: %w", err)
	}

	r := &Registry{byID: make(map[host.BlockID]int, len(f.Blocks))}
	for _, b := range f.Blocks {
		if b.ID == host.AirBlockID {
			return nil, fmt.Errorf("parse block registry: block #%d has no id", len(r.blocks))
		}
		if _, dup := r.byID[b.ID]; dup {
			return nil, fmt.Errorf("parse block registry: duplicate id %s", b.ID)
		}
		r.byID[b.ID] = len(r.blocks)
		r.blocks = append(r.blocks, b)
	}
	return r, nil
}

// DefaultRegistry возвращает встроенный реестр
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(blocksYAML)
	if err != nil {
		panic(err)
	}
	return r
}

// Blocks возвращает блоки в порядке объявления
func (r *Registry) Blocks() []host.BlockInfo {
	return append([]host.BlockInfo(nil), r.blocks...)
}

// Lookup ищет блок по ID
func (r *Registry) Lookup(id host.BlockID) (host.BlockInfo, bool) {
	i, ok := r.byID[id]
	if !ok {
		return host.BlockInfo{}, false
	}
	return r.blocks[i], true
}

// Len возвращает количество блоков
func (r *Registry) Len() int { return len(r.blocks) }
