// Package reference is a deterministic in-process reconstruction engine.
//
// It stands in for the external field-based remesher so the marshaling
// protocol can be driven end to end. Integration smooths the scan
// tangentially, clusters vertices on a grid whose edge is the configured
// scale, and keeps the surviving faces; order-4 position fields pair
// triangles into quads. Extraction replays the result through an
// engine.MeshVisitor.
//
// Only one scan can be integrated per Data; multi-scan fusion is not
// supported.
package reference
