package cosfile

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/cospath"
	"github.com/marmos91/cosfs/pkg/store"
)

// Write implements io.Writer.
//
// Bytes are buffered until Close. Once more than SimpleTransferThreshold
// bytes have been written the upload switches to multipart and full blocks
// are uploaded in the background.
func (f *File) Write(p []byte) (int, error) {
	if f.mode != ModeWrite {
		return 0, store.InvalidArgument("file not opened for writing: %s", f.Path())
	}
	if f.closed {
		return 0, store.InvalidArgument("write on closed file %s", f.Path())
	}
	if err := f.partError(); err != nil {
		return 0, err
	}

	f.buf = append(f.buf, p...)
	f.written += int64(len(p))

	if f.uploadID == "" && int64(len(f.buf)) > SimpleTransferThreshold {
		if err := f.startMultipart(); err != nil {
			return 0, f.fail(err)
		}
	}
	if f.uploadID != "" {
		if err := f.shipFullBlocks(); err != nil {
			return 0, f.fail(err)
		}
	}
	return len(p), nil
}

func (f *File) startMultipart() error {
	uploadID, err := f.client.InitiateMultipart(f.ctx, f.path.Bucket, f.targetKey())
	if err != nil {
		return err
	}
	f.uploadID = uploadID

	group, groupCtx := errgroup.WithContext(f.ctx)
	group.SetLimit(f.opts.MaxUploadConcurrency)
	f.group = group
	f.groupCtx = groupCtx

	logger.Debug("Switched %s to multipart upload %s after %d bytes", f.Path(), uploadID, len(f.buf))
	return nil
}

// shipFullBlocks schedules every complete block of the buffer as a part.
//
// Scheduled parts alias the old buffer; the remainder is moved to a fresh
// buffer so the aliased memory is never written again.
func (f *File) shipFullBlocks() error {
	bs := int(f.opts.BlockSize)
	if len(f.buf) < bs {
		return nil
	}

	pos := 0
	for ; len(f.buf)-pos >= bs; pos += bs {
		f.schedulePart(f.buf[pos : pos+bs : pos+bs])
		if err := f.partError(); err != nil {
			f.buf = nil
			return err
		}
	}
	f.buf = append([]byte(nil), f.buf[pos:]...)
	return nil
}

func (f *File) schedulePart(data []byte) {
	f.partNumber++
	number := f.partNumber
	bucket, key, uploadID := f.path.Bucket, f.targetKey(), f.uploadID
	ctx := f.groupCtx

	f.group.Go(func() error {
		part, err := f.client.UploadPart(ctx, bucket, key, uploadID, number, data)

		f.partsMu.Lock()
		defer f.partsMu.Unlock()
		if err != nil {
			if f.failure == nil {
				f.failure = err
			}
			return err
		}
		f.parts = append(f.parts, part)
		return nil
	})
}

// partError returns the first part upload failure seen so far.
func (f *File) partError() error {
	f.partsMu.Lock()
	defer f.partsMu.Unlock()
	return f.failure
}

// flush publishes the buffered bytes to the target key.
func (f *File) flush() error {
	if err := f.partError(); err != nil {
		return f.fail(err)
	}

	if f.uploadID == "" {
		data := f.buf
		f.buf = nil
		if err := f.client.Put(f.ctx, f.path.Bucket, f.targetKey(), data); err != nil {
			return err
		}
		logger.Debug("Uploaded %s (%d bytes)", cospath.Join(f.path.Bucket, f.targetKey()), len(data))
		return nil
	}

	if err := f.shipFullBlocks(); err != nil {
		return f.fail(err)
	}
	if len(f.buf) > 0 {
		f.schedulePart(f.buf)
		f.buf = nil
	}

	if err := f.group.Wait(); err != nil {
		return f.fail(err)
	}

	parts := f.sortedParts()
	if err := f.client.CompleteMultipart(f.ctx, f.path.Bucket, f.targetKey(), f.uploadID, parts); err != nil {
		return f.fail(err)
	}

	logger.Debug("Completed multipart upload %s for %s (%d parts, %d bytes)",
		f.uploadID, cospath.Join(f.path.Bucket, f.targetKey()), len(parts), f.written)
	f.uploadID = ""
	return nil
}

func (f *File) sortedParts() []store.Part {
	f.partsMu.Lock()
	defer f.partsMu.Unlock()

	parts := make([]store.Part, len(f.parts))
	copy(parts, f.parts)
	sort.Slice(parts, func(i, j int) bool { return parts[i].Number < parts[j].Number })
	return parts
}

// fail records err as the terminal error of the write, waits for in-flight
// parts and aborts the multipart upload. It returns the first recorded
// failure.
func (f *File) fail(err error) error {
	f.partsMu.Lock()
	if f.failure == nil {
		f.failure = err
	}
	first := f.failure
	f.partsMu.Unlock()

	f.buf = nil
	if f.group != nil {
		_ = f.group.Wait()
	}
	if abortErr := f.abort(); abortErr != nil {
		logger.Warn("Abort of failed upload for %s also failed: %v", f.Path(), abortErr)
	}
	return first
}

// abort cancels the in-flight multipart upload, if any. The upload ID is
// cleared first so an upload is never aborted twice.
func (f *File) abort() error {
	if f.uploadID == "" {
		return nil
	}
	uploadID := f.uploadID
	f.uploadID = ""

	// abort even if the caller's context is already cancelled
	ctx := context.WithoutCancel(f.ctx)
	if err := f.client.AbortMultipart(ctx, f.path.Bucket, f.targetKey(), uploadID); err != nil {
		return err
	}
	logger.Debug("Aborted multipart upload %s for %s", uploadID, f.Path())
	return nil
}
