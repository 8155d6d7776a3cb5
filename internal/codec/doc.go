// Package codec loads, transforms and encodes raster images for derivative
// and thumbnail generation.
//
// Two implementations are provided:
//   - VipsCodec: libvips through govips. Reads jpeg, png, webp, avif, gif and
//     pdf and writes all derivative formats.
//   - ImagingCodec: pure Go through disintegration/imaging. Used when libvips
//     is unavailable. It cannot encode webp or avif, or decode avif.
//
// Quality is always an integer in [1, 100]. It is mapped per output format:
//   - jpeg: passed through
//   - png: compression level round(9 × (100 − q) / 100)
//   - webp: lossy, byte budget sourceSize × q / 100
//   - avif: passed through with a fixed encoder effort
//
// Every encoder strips metadata, and every loader applies EXIF orientation
// before returning pixels.
package codec
