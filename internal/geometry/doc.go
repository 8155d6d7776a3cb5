// Package geometry turns a source size and a requested width/height into a
// crop rectangle and output dimensions. It performs no I/O.
//
// Two fit modes exist:
//   - Long-side resize: only one of width or height is requested. The image
//     is scaled uniformly so the requested axis matches the request.
//   - Crop-and-resize: both are requested. The source is cropped about its
//     center to the target aspect ratio, then scaled to exactly the request.
//
// Enlargement beyond the source resolution is clamped unless the caller
// allows it.
package geometry
