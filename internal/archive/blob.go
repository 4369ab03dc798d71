// Package archive writes terminal instances to blob storage. Archived
// copies preserve the full projected state for audit after the live stream
// is trimmed or expired
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/docketry/docket/pkg/api"
)

// Archiver stores instance state using gocloud.dev/blob, supporting S3,
// GCS, Azure Blob Storage, and local file buckets
type Archiver struct {
	bucket *blob.Bucket
	prefix string
}

// ErrNotArchived is returned when no archive exists for an instance
var ErrNotArchived = errors.New("instance not archived")

// New opens the bucket at the provided URL
func New(ctx context.Context, bucketURL, prefix string) (*Archiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Archiver{bucket: bucket, prefix: prefix}, nil
}

// NewWithBucket wraps an already-open bucket
func NewWithBucket(bucket *blob.Bucket, prefix string) *Archiver {
	return &Archiver{bucket: bucket, prefix: prefix}
}

// Store writes the instance state to the bucket. Transient storage errors
// are classified so the activity executor retries them
func (a *Archiver) Store(ctx context.Context, st *api.InstanceState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := a.bucket.WriteAll(ctx, a.keyFor(st.ID), data, nil); err != nil {
		return fmt.Errorf("%w: %w", api.ErrTransientInfra, err)
	}
	return nil
}

// Load reads a previously archived instance state
func (a *Archiver) Load(
	ctx context.Context, id api.InstanceID,
) (*api.InstanceState, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotArchived, id)
		}
		return nil, fmt.Errorf("%w: %w", api.ErrTransientInfra, err)
	}
	var st api.InstanceState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Delete removes an archived instance. Missing archives are not an error
func (a *Archiver) Delete(ctx context.Context, id api.InstanceID) error {
	err := a.bucket.Delete(ctx, a.keyFor(id))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return err
	}
	return nil
}

// Close releases the underlying bucket
func (a *Archiver) Close() error {
	return a.bucket.Close()
}

func (a *Archiver) keyFor(id api.InstanceID) string {
	return a.prefix + string(id) + ".json"
}
