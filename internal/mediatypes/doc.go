// Package mediatypes classifies files into the coarse kinds the derivative
// engine cares about.
//
// It has no dependencies beyond the standard library so storage, thumbnail
// and handlers can all import it without cycles.
//
//	kind := mediatypes.Classify("video/mp4")     // FileTypeVideo
//	kind = mediatypes.GetFileType(".jpg")        // FileTypeImage
//	mime := mediatypes.GetMimeType(".webp")      // "image/webp"
//
// Classify works on a sniffed MIME type and is what callers should prefer.
// GetFileType is the extension-only fallback.
package mediatypes
