package scene

// Entity is a mesh drawn with a material at a node of a Graph.
type Entity struct {
	Mesh     *Mesh
	Material *Material
	Node     NodeID
}

// NewEntity adds a root node to g for a new entity.
func NewEntity(g *Graph, mesh *Mesh, material *Material) *Entity {
	return &Entity{Mesh: mesh, Material: material, Node: g.New()}
}
