// Package scene holds the CPU side of a ray traced scene: the camera, the
// transform graph, meshes and materials.
//
// All matrices use the left-handed row-vector convention of the ray
// generation shader. A point p is transformed as p*M, so a world matrix is
// Scale*Rotation*Translation*ParentWorld and the camera's clip transform is
// View*Projection. Matrices are stored in mgl32.Mat4 with At(r, c) being
// row r, column c of that convention.
package scene
