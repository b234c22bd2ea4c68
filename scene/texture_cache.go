package scene

import (
	"path/filepath"

	"github.com/gogpu/raytrace/graphics"
	"github.com/gogpu/raytrace/internal/cache"
)

// TextureCache shares textures loaded from the same file. Evicted textures
// are released, so limit must cover every texture still referenced by a
// live material. A limit of 0 keeps every texture until Clear.
type TextureCache struct {
	ctx     *graphics.Context
	base    string
	entries *cache.Cache[string, *graphics.Texture]
}

// NewTextureCache returns an empty cache that loads into ctx.
func NewTextureCache(ctx *graphics.Context, limit int) *TextureCache {
	return &TextureCache{
		ctx: ctx,
		entries: cache.New(limit, func(path string, tex *graphics.Texture) {
			ctx.ReleaseTexture(tex)
		}),
	}
}

// SetBaseDir sets the directory relative texture paths are resolved
// against. An empty dir leaves them relative to the working directory.
func (c *TextureCache) SetBaseDir(dir string) { c.base = dir }

// Load returns the texture for path, decoding and uploading it on first
// use.
func (c *TextureCache) Load(path string) (*graphics.Texture, error) {
	if c.base != "" && !filepath.IsAbs(path) {
		path = filepath.Join(c.base, path)
	}
	path = filepath.Clean(path)
	return c.entries.GetOrLoad(path, func() (*graphics.Texture, error) {
		return LoadTexture(c.ctx, path)
	})
}

// Len returns the number of cached textures.
func (c *TextureCache) Len() int { return c.entries.Len() }

// Clear releases every cached texture.
func (c *TextureCache) Clear() { c.entries.Clear() }
