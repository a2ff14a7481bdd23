package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
)

// Bucket is an in-memory gcp.BucketService. Objects are keyed by category then key.
type Bucket struct {
	mu      sync.Mutex
	objects map[gcp.BucketCategory]map[string][]byte
	types   map[string]string

	// UploadErr, when set, fails every UploadFile call.
	UploadErr error
	// CopyErr, when set, fails every CopyObject call.
	CopyErr error

	Uploads int
	Copies  int
	Deletes int
}

var _ gcp.BucketService = (*Bucket)(nil)

func NewBucket() *Bucket {
	return &Bucket{
		objects: map[gcp.BucketCategory]map[string][]byte{},
		types:   map[string]string{},
	}
}

func (b *Bucket) Put(category gcp.BucketCategory, key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(category, key, data)
}

func (b *Bucket) put(category gcp.BucketCategory, key string, data []byte) {
	if b.objects[category] == nil {
		b.objects[category] = map[string][]byte{}
	}
	b.objects[category][key] = append([]byte(nil), data...)
}

// Object returns a copy of the stored bytes.
func (b *Bucket) Object(category gcp.BucketCategory, key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[category][key]
	return append([]byte(nil), data...), ok
}

func (b *Bucket) Keys(category gcp.BucketCategory) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects[category]))
	for k := range b.objects[category] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (b *Bucket) ContentType(category gcp.BucketCategory, key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.types[string(category)+"/"+key]
}

func (b *Bucket) UploadFile(dbc dbctx.Context, category gcp.BucketCategory, key string, file io.Reader, contentType string) error {
	if b.UploadErr != nil {
		return b.UploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Uploads++
	b.put(category, key, data)
	b.types[string(category)+"/"+key] = contentType
	return nil
}

func (b *Bucket) DeleteFile(dbc dbctx.Context, category gcp.BucketCategory, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deletes++
	delete(b.objects[category], key)
	return nil
}

func (b *Bucket) DownloadFile(ctx context.Context, category gcp.BucketCategory, key string) (io.ReadCloser, error) {
	data, ok := b.Object(category, key)
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", category, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Bucket) Exists(ctx context.Context, category gcp.BucketCategory, key string) (bool, error) {
	_, ok := b.Object(category, key)
	return ok, nil
}

func (b *Bucket) CopyObject(ctx context.Context, srcCategory gcp.BucketCategory, srcKey string, dstCategory gcp.BucketCategory, dstKey string) error {
	if b.CopyErr != nil {
		return b.CopyErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[srcCategory][srcKey]
	if !ok {
		return fmt.Errorf("object %s/%s not found", srcCategory, srcKey)
	}
	b.Copies++
	b.put(dstCategory, dstKey, data)
	return nil
}

func (b *Bucket) ListKeys(ctx context.Context, category gcp.BucketCategory, prefix string) ([]string, error) {
	out := []string{}
	for _, k := range b.Keys(category) {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *Bucket) DeletePrefix(ctx context.Context, category gcp.BucketCategory, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.objects[category] {
		if strings.HasPrefix(k, prefix) {
			delete(b.objects[category], k)
		}
	}
	return nil
}

func (b *Bucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return fmt.Sprintf("https://%s.cdn.test/%s", category, key)
}

func (b *Bucket) ObjectURI(category gcp.BucketCategory, key string) string {
	return fmt.Sprintf("gs://%s-bucket/%s", category, key)
}
