package storage

import "io"

// BlobStore holds the raw bytes of uploaded study material. The key recorded
// on an upload job is the storage location the Classroom link points back to.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
