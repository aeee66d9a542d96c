package testing

import (
	"context"
	"sync"

	"github.com/marmos91/cosfs/pkg/store"
)

// Operation names used by RecordingClient.
const (
	OpListBuckets       = "ListBuckets"
	OpHeadBucket        = "HeadBucket"
	OpList              = "List"
	OpHead              = "Head"
	OpGet               = "Get"
	OpPut               = "Put"
	OpInitiateMultipart = "InitiateMultipart"
	OpUploadPart        = "UploadPart"
	OpCompleteMultipart = "CompleteMultipart"
	OpAbortMultipart    = "AbortMultipart"
	OpDeleteBatch       = "DeleteBatch"
	OpExists            = "Exists"
	OpCopy              = "Copy"
)

type failure struct {
	// nth call to fail (1-based); 0 fails every call
	nth int
	err error
}

// RecordingClient wraps a store.Client, counting calls per operation and
// injecting failures on demand.
//
//	rec := storetesting.NewRecordingClient(memory.New("b"))
//	rec.FailOn(storetesting.OpUploadPart, 15, errors.New("boom"))
type RecordingClient struct {
	inner store.Client

	mu       sync.Mutex
	counts   map[string]int
	calls    []string
	failures map[string]failure
	deletes  [][]string
}

// NewRecordingClient wraps inner.
func NewRecordingClient(inner store.Client) *RecordingClient {
	return &RecordingClient{
		inner:    inner,
		counts:   make(map[string]int),
		failures: make(map[string]failure),
	}
}

// FailOn makes the nth call (1-based) of op return err.
func (r *RecordingClient) FailOn(op string, nth int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = failure{nth: nth, err: err}
}

// FailAlways makes every call of op return err.
func (r *RecordingClient) FailAlways(op string, err error) {
	r.FailOn(op, 0, err)
}

// ClearFailures removes all injected failures.
func (r *RecordingClient) ClearFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = make(map[string]failure)
}

// Count returns how many times op was called.
func (r *RecordingClient) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

// Calls returns the operations in call order.
func (r *RecordingClient) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// DeleteBatches returns the key lists passed to DeleteBatch, in call order.
func (r *RecordingClient) DeleteBatches() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.deletes))
	copy(out, r.deletes)
	return out
}

// Reset clears counters and recorded calls but keeps failures.
func (r *RecordingClient) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[string]int)
	r.calls = nil
	r.deletes = nil
}

// record counts a call and returns the injected error for it, if any.
func (r *RecordingClient) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[op]++
	r.calls = append(r.calls, op)

	f, ok := r.failures[op]
	if !ok {
		return nil
	}
	if f.nth == 0 || f.nth == r.counts[op] {
		return f.err
	}
	return nil
}

func (r *RecordingClient) ListBuckets(ctx context.Context) ([]store.ObjectInfo, error) {
	if err := r.record(OpListBuckets); err != nil {
		return nil, err
	}
	return r.inner.ListBuckets(ctx)
}

func (r *RecordingClient) HeadBucket(ctx context.Context, bucket string) error {
	if err := r.record(OpHeadBucket); err != nil {
		return err
	}
	return r.inner.HeadBucket(ctx, bucket)
}

func (r *RecordingClient) List(ctx context.Context, bucket, prefix string, recursive bool) ([]store.ObjectInfo, error) {
	if err := r.record(OpList); err != nil {
		return nil, err
	}
	return r.inner.List(ctx, bucket, prefix, recursive)
}

func (r *RecordingClient) Head(ctx context.Context, bucket, key, versionID string) (store.ObjectInfo, error) {
	if err := r.record(OpHead); err != nil {
		return store.ObjectInfo{}, err
	}
	return r.inner.Head(ctx, bucket, key, versionID)
}

func (r *RecordingClient) Get(ctx context.Context, bucket, key, versionID string, start, end int64) ([]byte, error) {
	if err := r.record(OpGet); err != nil {
		return nil, err
	}
	return r.inner.Get(ctx, bucket, key, versionID, start, end)
}

func (r *RecordingClient) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := r.record(OpPut); err != nil {
		return err
	}
	return r.inner.Put(ctx, bucket, key, data)
}

func (r *RecordingClient) InitiateMultipart(ctx context.Context, bucket, key string) (string, error) {
	if err := r.record(OpInitiateMultipart); err != nil {
		return "", err
	}
	return r.inner.InitiateMultipart(ctx, bucket, key)
}

func (r *RecordingClient) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, data []byte) (store.Part, error) {
	if err := r.record(OpUploadPart); err != nil {
		return store.Part{}, err
	}
	return r.inner.UploadPart(ctx, bucket, key, uploadID, partNumber, data)
}

func (r *RecordingClient) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []store.Part) error {
	if err := r.record(OpCompleteMultipart); err != nil {
		return err
	}
	return r.inner.CompleteMultipart(ctx, bucket, key, uploadID, parts)
}

func (r *RecordingClient) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	if err := r.record(OpAbortMultipart); err != nil {
		return err
	}
	return r.inner.AbortMultipart(ctx, bucket, key, uploadID)
}

func (r *RecordingClient) DeleteBatch(ctx context.Context, bucket string, keys []string) ([]store.DeleteResult, error) {
	r.mu.Lock()
	r.deletes = append(r.deletes, append([]string(nil), keys...))
	r.mu.Unlock()

	if err := r.record(OpDeleteBatch); err != nil {
		return nil, err
	}
	return r.inner.DeleteBatch(ctx, bucket, keys)
}

func (r *RecordingClient) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := r.record(OpExists); err != nil {
		return false, err
	}
	return r.inner.Exists(ctx, bucket, key)
}

func (r *RecordingClient) Copy(ctx context.Context, srcBucket, srcKey, srcVersionID, dstBucket, dstKey string) error {
	if err := r.record(OpCopy); err != nil {
		return err
	}
	return r.inner.Copy(ctx, srcBucket, srcKey, srcVersionID, dstBucket, dstKey)
}

// SetEndpoint forwards to the wrapped client when it supports endpoints.
func (r *RecordingClient) SetEndpoint(endpoint string) {
	if setter, ok := r.inner.(store.EndpointSetter); ok {
		setter.SetEndpoint(endpoint)
	}
}

// Endpoint returns the wrapped client's endpoint, or "".
func (r *RecordingClient) Endpoint() string {
	if setter, ok := r.inner.(store.EndpointSetter); ok {
		return setter.Endpoint()
	}
	return ""
}

var (
	_ store.Client         = (*RecordingClient)(nil)
	_ store.EndpointSetter = (*RecordingClient)(nil)
)
