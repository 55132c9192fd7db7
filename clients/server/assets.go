// assets.go — In-memory asset manager for uploaded images.
package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/b1690/awardgen/pkg/imageref"
)

type asset struct {
	Name string
	Ref  imageref.Ref
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

func (am *assetManager) add(name string, ref imageref.Ref) string {
	id := uuid.NewString()
	am.mu.Lock()
	am.assets[id] = &asset{Name: name, Ref: ref}
	am.mu.Unlock()
	return id
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

func (am *assetManager) listAll() []map[string]any {
	am.mu.RLock()
	defer am.mu.RUnlock()
	result := make([]map[string]any, 0, len(am.assets))
	for id, a := range am.assets {
		result = append(result, map[string]any{
			"id":   id,
			"name": a.Name,
			"mime": a.Ref.MIME,
			"size": len(a.Ref.Data),
		})
	}
	return result
}

func (am *assetManager) remove(id string) {
	am.mu.Lock()
	delete(am.assets, id)
	am.mu.Unlock()
}
