// Package storage confines all filesystem access to a single storage root.
//
// Paths handed to a Root are slash-separated and relative to the root; Clean
// normalizes them and refuses any that would escape. Writes go to a temp file
// in the destination directory and are renamed into place, so readers never
// observe a partial file and concurrent writers of identical content are
// harmless.
//
// The root is an afero.Fs: a BasePathFs over the OS filesystem in production
// and a MemMapFs in tests.
package storage
