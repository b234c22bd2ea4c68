package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
)

// Material holds surface parameters and a table of texture slots, one per
// shader register.
type Material struct {
	Tint     mgl32.Vec3
	UVScale  mgl32.Vec2
	UVOffset mgl32.Vec2

	textures *graphics.SlotTable
}

// NewMaterial returns a material with the given tint, unit UV scale and no
// textures.
func NewMaterial(tint mgl32.Vec3) *Material {
	return &Material{
		Tint:     tint,
		UVScale:  mgl32.Vec2{1, 1},
		textures: graphics.NewSlotTable(graphics.MaxTextureSlots),
	}
}

// AddTexture binds tex to the texture register slot. It fails for slots
// outside the table and after FinalizeTextures.
func (m *Material) AddTexture(tex *graphics.Texture, slot int) error {
	return m.textures.Set(slot, tex.SRV)
}

// FinalizeTextures copies the texture views into adjacent shader-visible
// slots. Later calls return the same handle.
func (m *Material) FinalizeTextures(ctx *graphics.Context) (gpucore.GPUDescriptorHandle, error) {
	return m.textures.Finalize(ctx)
}

// TextureTable returns the handle of texture slot 0, valid after
// FinalizeTextures.
func (m *Material) TextureTable() gpucore.GPUDescriptorHandle { return m.textures.Base() }

// Finalized reports whether FinalizeTextures has run.
func (m *Material) Finalized() bool { return m.textures.Finalized() }

// HighestTextureSlot returns the highest bound slot, or -1.
func (m *Material) HighestTextureSlot() int { return m.textures.Highest() }
