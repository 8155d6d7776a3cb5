// Package thumbnail produces the fixed-size preview shown for every file in
// the browser.
//
// A thumbnail is named after its source only, "<base>_thumbnail_.<ext>", and
// is never regenerated once it exists. Images keep their extension; video,
// PDF and everything else get a PNG. Images, the first frame of animated
// images, page one of PDFs and the first video frame (via ffmpeg) are cropped
// to the configured box when wider than it.
//
// Thumbnails are best effort: when decoding or encoding fails the source
// bytes are copied to the thumbnail path instead and Ensure still succeeds.
package thumbnail
