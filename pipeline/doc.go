// Package pipeline assembles the ray tracing pipeline: root signatures, the
// state object and the shader table, plus the output image the dispatch
// writes into.
//
// # Binding layout
//
// The global root signature binds, in order:
//
//	0  descriptor table  u0        output image UAV
//	1  root SRV          t0        top-level acceleration structure
//	2  descriptor table  b0        per-frame scene constants
//
// The local root signature, read from shader records, binds:
//
//	0  descriptor table  b1        per-hit-group constants
//	1  descriptor table  t1, t2    geometry index and vertex buffers (raw)
//
// # Shader table
//
// The table holds three records of one fixed stride: ray generation, miss
// and the hit group. The hit group record carries two descriptor handles
// after its identifier, one per local root parameter:
//
//	| identifier (32) | b1 table (8) | t1 table (8) | padding |
//
// Dispatch addresses are base + index*stride and depend on this order.
package pipeline
