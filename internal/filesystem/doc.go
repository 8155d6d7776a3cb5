/*
Package filesystem wraps afero operations with retry logic for NFS stale file
handle errors.

The storage root is commonly an NFS mount shared with the file browser. When
the server side replaces a file, open handles go stale and the first Stat or
Open returns ESTALE. Those calls are retried with exponential backoff; every
other error fails immediately.

	info, err := filesystem.StatWithRetry(fs, "/photos/a.jpg", filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(fs, "/photos/a.jpg", filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

Defaults are 3 retries, 50ms initial backoff, 500ms cap. Metrics are recorded
through the Observer set with SetObserver; with no observer nothing is recorded.
*/
package filesystem
