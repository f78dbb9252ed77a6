package batch

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const maxBoundaryAttempts = 8

func randomBoundary(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// contentBoundary hashes the operations together with the salt.
func contentBoundary(prefix string, ops []Operation, salt int) string {
	d := xxhash.New()
	for _, op := range ops {
		for _, field := range []string{op.ID, op.Method, op.Path, op.ChangesetID} {
			_, _ = d.WriteString(field)
			_, _ = d.Write([]byte{0})
		}
		for _, h := range op.Headers {
			_, _ = d.WriteString(h.Name + ":" + h.Value)
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.Write(op.Body)
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.WriteString(prefix + strconv.Itoa(salt))
	return fmt.Sprintf("%s_%016x", prefix, d.Sum64())
}

// newBoundary picks a boundary that does not occur in any operation body.
func (c *Codec) newBoundary(prefix string, ops []Operation) (string, error) {
	for attempt := 0; attempt < maxBoundaryAttempts; attempt++ {
		var boundary string
		if c.contentBoundaries {
			boundary = contentBoundary(prefix, ops, attempt)
		} else {
			boundary = c.boundary(prefix)
		}
		if boundary == "" || len(boundary) > 70 {
			return "", fmt.Errorf("%w: boundary %q must be 1 to 70 characters", ErrInvalidBatch, boundary)
		}
		if !collides(boundary, ops) {
			return boundary, nil
		}
	}
	return "", fmt.Errorf("%w: could not choose a %s boundary absent from the operation bodies", ErrInvalidBatch, prefix)
}

func collides(boundary string, ops []Operation) bool {
	marker := []byte("--" + boundary)
	for _, op := range ops {
		if bytes.Contains(op.Body, marker) {
			return true
		}
	}
	return false
}
