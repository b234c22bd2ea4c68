// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeID addresses a node in a Graph.
type NodeID int32

// NoNode is the parent of root nodes.
const NoNode NodeID = -1

type node struct {
	position     mgl32.Vec3
	pitchYawRoll mgl32.Vec3
	scale        mgl32.Vec3

	up, right, forward mgl32.Vec3
	world, worldInvT   mgl32.Mat4

	matricesDirty bool
	vectorsDirty  bool

	parent   NodeID
	children []NodeID
	alive    bool
}

// Graph is an arena of transform nodes. Parent and child links are node
// IDs, never pointers, so nodes can be removed and their slots reused.
//
// World matrices are computed lazily. Any change to a node marks it and
// every descendant dirty through an explicit worklist.
//
// Graph is not safe for concurrent use.
type Graph struct {
	nodes []node
	free  []NodeID
	work  []NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// New adds a root node at the origin with unit scale and returns its ID.
func (g *Graph) New() NodeID {
	n := node{
		scale:     mgl32.Vec3{1, 1, 1},
		up:        mgl32.Vec3{0, 1, 0},
		right:     mgl32.Vec3{1, 0, 0},
		forward:   mgl32.Vec3{0, 0, 1},
		world:     mgl32.Ident4(),
		worldInvT: mgl32.Ident4(),
		parent:    NoNode,
		alive:     true,
	}
	if k := len(g.free); k > 0 {
		id := g.free[k-1]
		g.free = g.free[:k-1]
		g.nodes[id] = n
		return id
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

// Len returns the number of live nodes.
func (g *Graph) Len() int { return len(g.nodes) - len(g.free) }

// Valid reports whether id is a live node.
func (g *Graph) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes) && g.nodes[id].alive
}

func (g *Graph) get(id NodeID) *node {
	if !g.Valid(id) {
		panic(fmt.Sprintf("scene: invalid node %d", id))
	}
	return &g.nodes[id]
}

// Remove deletes id. Its children become roots and keep their world
// placement. Removing an invalid node does nothing.
func (g *Graph) Remove(id NodeID) {
	if !g.Valid(id) {
		return
	}
	n := g.get(id)
	for _, c := range slices.Clone(n.children) {
		_ = g.RemoveChild(id, c, true)
	}
	if n.parent != NoNode {
		_ = g.RemoveChild(n.parent, id, false)
	}
	g.nodes[id] = node{parent: NoNode}
	g.free = append(g.free, id)
}

// markDirty flags id and all of its descendants for a matrix rebuild.
func (g *Graph) markDirty(id NodeID) {
	g.work = append(g.work[:0], id)
	for len(g.work) > 0 {
		last := len(g.work) - 1
		cur := g.work[last]
		g.work = g.work[:last]
		n := &g.nodes[cur]
		n.matricesDirty = true
		g.work = append(g.work, n.children...)
	}
}

// Position returns the local position of id.
func (g *Graph) Position(id NodeID) mgl32.Vec3 { return g.get(id).position }

// PitchYawRoll returns the local rotation of id in radians.
func (g *Graph) PitchYawRoll(id NodeID) mgl32.Vec3 { return g.get(id).pitchYawRoll }

// Scale returns the local scale of id.
func (g *Graph) Scale(id NodeID) mgl32.Vec3 { return g.get(id).scale }

// SetPosition sets the local position of id.
func (g *Graph) SetPosition(id NodeID, p mgl32.Vec3) {
	g.get(id).position = p
	g.markDirty(id)
}

// SetRotation sets the local pitch, yaw and roll of id.
func (g *Graph) SetRotation(id NodeID, pitchYawRoll mgl32.Vec3) {
	n := g.get(id)
	n.pitchYawRoll = pitchYawRoll
	n.vectorsDirty = true
	g.markDirty(id)
}

// SetScale sets the local scale of id.
func (g *Graph) SetScale(id NodeID, s mgl32.Vec3) {
	g.get(id).scale = s
	g.markDirty(id)
}

// MoveAbsolute offsets id along the world axes of its parent space.
func (g *Graph) MoveAbsolute(id NodeID, offset mgl32.Vec3) {
	n := g.get(id)
	n.position = n.position.Add(offset)
	g.markDirty(id)
}

// MoveRelative offsets id along its own rotated axes.
func (g *Graph) MoveRelative(id NodeID, offset mgl32.Vec3) {
	n := g.get(id)
	n.position = n.position.Add(RotateVector(offset, n.pitchYawRoll))
	g.markDirty(id)
}

// Rotate adds to the pitch, yaw and roll of id.
func (g *Graph) Rotate(id NodeID, pitchYawRoll mgl32.Vec3) {
	n := g.get(id)
	n.pitchYawRoll = n.pitchYawRoll.Add(pitchYawRoll)
	n.vectorsDirty = true
	g.markDirty(id)
}

// ScaleBy multiplies the scale of id component-wise.
func (g *Graph) ScaleBy(id NodeID, s mgl32.Vec3) {
	n := g.get(id)
	n.scale = mgl32.Vec3{n.scale[0] * s[0], n.scale[1] * s[1], n.scale[2] * s[2]}
	g.markDirty(id)
}

// Up returns the rotated local up axis of id.
func (g *Graph) Up(id NodeID) mgl32.Vec3 { return g.vectors(id).up }

// Right returns the rotated local right axis of id.
func (g *Graph) Right(id NodeID) mgl32.Vec3 { return g.vectors(id).right }

// Forward returns the rotated local forward axis of id.
func (g *Graph) Forward(id NodeID) mgl32.Vec3 { return g.vectors(id).forward }

func (g *Graph) vectors(id NodeID) *node {
	n := g.get(id)
	if n.vectorsDirty {
		n.up = RotateVector(mgl32.Vec3{0, 1, 0}, n.pitchYawRoll)
		n.right = RotateVector(mgl32.Vec3{1, 0, 0}, n.pitchYawRoll)
		n.forward = RotateVector(mgl32.Vec3{0, 0, 1}, n.pitchYawRoll)
		n.vectorsDirty = false
	}
	return n
}

// World returns the world matrix of id: Scale*Rotation*Translation times
// the parent's world matrix.
func (g *Graph) World(id NodeID) mgl32.Mat4 {
	g.update(id)
	return g.nodes[id].world
}

// WorldInverseTranspose returns the inverse transpose of World(id), used to
// transform normals.
func (g *Graph) WorldInverseTranspose(id NodeID) mgl32.Mat4 {
	g.update(id)
	return g.nodes[id].worldInvT
}

// update rebuilds the dirty matrices on the path from the root to id.
func (g *Graph) update(id NodeID) {
	if !g.get(id).matricesDirty {
		return
	}
	// Collect the dirty chain bottom-up; a clean ancestor ends it.
	chain := g.work[:0]
	for cur := id; cur != NoNode && g.nodes[cur].matricesDirty; cur = g.nodes[cur].parent {
		chain = append(chain, cur)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := &g.nodes[chain[i]]
		w := Scaling(n.scale).Mul4(Rotation(n.pitchYawRoll)).Mul4(Translation(n.position))
		if n.parent != NoNode {
			w = w.Mul4(g.nodes[n.parent].world)
		}
		n.world = w
		n.worldInvT = w.Transpose().Inv()
		n.matricesDirty = false
	}
	g.work = chain[:0]
}

// setFromMatrix replaces the local transform of id with the decomposition
// of m.
func (g *Graph) setFromMatrix(id NodeID, m mgl32.Mat4) {
	n := g.get(id)
	n.position, n.pitchYawRoll, n.scale = decompose(m)
	n.vectorsDirty = true
	g.markDirty(id)
}

// Parent returns the parent of id, or NoNode for a root.
func (g *Graph) Parent(id NodeID) NodeID { return g.get(id).parent }

// Children returns the children of id in insertion order. The slice is
// shared with the graph and must not be modified.
func (g *Graph) Children(id NodeID) []NodeID { return g.get(id).children }

// ChildCount returns the number of children of id.
func (g *Graph) ChildCount(id NodeID) int { return len(g.get(id).children) }

// AddChild attaches child to parent, detaching it from a previous parent.
// With keepWorld the child's local transform is rewritten so that its world
// placement does not change. Adding an existing child does nothing.
func (g *Graph) AddChild(parent, child NodeID, keepWorld bool) error {
	if !g.Valid(parent) || !g.Valid(child) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidNode, parent, child)
	}
	if g.nodes[child].parent == parent {
		return nil
	}
	for cur := parent; cur != NoNode; cur = g.nodes[cur].parent {
		if cur == child {
			return fmt.Errorf("%w: %d under %d", ErrCycle, child, parent)
		}
	}
	if old := g.nodes[child].parent; old != NoNode {
		if err := g.RemoveChild(old, child, keepWorld); err != nil {
			return err
		}
	}
	if keepWorld {
		rel := g.World(child).Mul4(g.World(parent).Inv())
		g.setFromMatrix(child, rel)
	}
	p := &g.nodes[parent]
	p.children = append(p.children, child)
	g.nodes[child].parent = parent
	g.markDirty(child)
	return nil
}

// RemoveChild detaches child from parent, making it a root. With
// applyParent the child keeps its world placement.
func (g *Graph) RemoveChild(parent, child NodeID, applyParent bool) error {
	if !g.Valid(parent) || !g.Valid(child) {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidNode, parent, child)
	}
	p := &g.nodes[parent]
	i := slices.Index(p.children, child)
	if i < 0 {
		return fmt.Errorf("%w: %d of %d", ErrNotChild, child, parent)
	}
	var world mgl32.Mat4
	if applyParent {
		world = g.World(child)
	}
	p.children = slices.Delete(p.children, i, i+1)
	g.nodes[child].parent = NoNode
	if applyParent {
		g.setFromMatrix(child, world)
	} else {
		g.markDirty(child)
	}
	return nil
}

// SetParent moves id under parent, or makes it a root when parent is
// NoNode.
func (g *Graph) SetParent(id, parent NodeID, keepWorld bool) error {
	if !g.Valid(id) {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	if parent == NoNode {
		if old := g.nodes[id].parent; old != NoNode {
			return g.RemoveChild(old, id, keepWorld)
		}
		return nil
	}
	return g.AddChild(parent, id, keepWorld)
}
