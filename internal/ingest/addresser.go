// Package ingest implements the content-addressing and metadata
// reconciliation steps of the upload pipeline.
package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyUpload is returned when the uploaded stream contains no bytes.
var ErrEmptyUpload = errors.New("empty upload")

// Content is a fully buffered upload with its computed identity. The buffer
// allows a second pass for metadata extraction without re-reading the source.
type Content struct {
	Bytes  []byte
	SHA256 string
	Size   int64
}

// ReadContent consumes the stream once, hashing and buffering simultaneously.
func ReadContent(r io.Reader) (*Content, error) {
	h := sha256.New()
	var buf bytes.Buffer

	n, err := io.Copy(io.MultiWriter(&buf, h), r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyUpload
	}

	return &Content{
		Bytes:  buf.Bytes(),
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   n,
	}, nil
}

// Reader returns a fresh reader over the buffered bytes.
func (c *Content) Reader() io.Reader {
	return bytes.NewReader(c.Bytes)
}

// MatchesClaim reports whether a client-supplied digest agrees with the
// computed one. An empty claim trivially matches. A mismatch is a
// consistency warning, not a security boundary: the computed digest is
// always the one trusted.
func (c *Content) MatchesClaim(claim string) bool {
	return claim == "" || claim == c.SHA256
}
