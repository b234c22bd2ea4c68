// Package accel builds ray tracing acceleration structures.
//
// A bottom-level structure (BLAS) is built from one mesh's vertex and index
// buffers as a single opaque triangle geometry. A top-level structure (TLAS)
// references built BLAS instances, each with a 3x4 transform, an instance
// mask and a hit group contribution.
//
// Both builds record onto the shared command list of a graphics.Context and
// end with an unordered-access barrier on the result buffer, so every
// structure a later build or dispatch reads has completed. BuildTopLevel
// then submits and waits for the GPU; it is meant for setup, not per-frame
// use.
package accel
