package cospath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cos://bucket/key", "bucket/key"},
		{"/bucket/key", "/bucket/key"},
		{"bucket", "bucket"},
		{"cos://", RootMarker},
		{"", RootMarker},
		{"cos://cos://bucket", "bucket"},
		{"cos://cos://", RootMarker},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripProtocol(tt.in))
		})
	}
}

func TestStripProtocolIdempotent(t *testing.T) {
	inputs := []string{
		"", "/", "cos://", "cos://bucket", "cos://bucket/a/b", "/bucket/a",
		"bucket/key?versionId=v1", "cos://cos://nested", "weird//path//",
	}

	for _, in := range inputs {
		once := StripProtocol(in)
		assert.Equal(t, once, StripProtocol(once), "input %q", in)
	}
}

func TestStripProtocolAll(t *testing.T) {
	got := StripProtocolAll([]string{"cos://a/b", "c/d", ""})
	assert.Equal(t, []string{"a/b", "c/d", RootMarker}, got)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantBucket string
		wantKey    string
		wantVer    string
	}{
		{"nested key", "/bucket/a/b/c", "bucket", "a/b/c", ""},
		{"bucket only", "/bucket", "bucket", "", ""},
		{"bucket trailing slash", "bucket/", "bucket", "", ""},
		{"protocol", "cos://bucket/key", "bucket", "key", ""},
		{"version", "/bucket/key?versionId=v1", "bucket", "key", "v1"},
		{"nested version", "cos://bucket/dir/file.txt?versionId=abc-123", "bucket", "dir/file.txt", "abc-123"},
		{"root", "", "", "", ""},
		{"root protocol", "cos://", "", "", ""},
		{"many leading slashes", "///bucket/key", "bucket", "key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key := SplitPath(tt.in)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)

			b, k, v := SplitPathVersion(tt.in)
			assert.Equal(t, tt.wantBucket, b)
			assert.Equal(t, tt.wantKey, k)
			assert.Equal(t, tt.wantVer, v)
		})
	}
}

func TestSplitRoundTrip(t *testing.T) {
	p := Split("cos://bucket/dir/file?versionId=7")
	assert.Equal(t, "bucket/dir/file?versionId=7", p.String())
	assert.Equal(t, "cos://bucket/dir/file?versionId=7", p.URI())
	assert.False(t, p.IsRoot())
	assert.False(t, p.IsBucket())

	assert.True(t, Split("cos://").IsRoot())
	assert.True(t, Split("bucket").IsBucket())
}

func TestParent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bucket/a/b/c", "bucket/a/b"},
		{"cos://bucket/a", "bucket"},
		{"/bucket/a/", "bucket"},
		{"bucket", RootMarker},
		{"", RootMarker},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Parent(tt.in))
		})
	}
}

func TestAncestors(t *testing.T) {
	assert.Equal(t,
		[]string{"bucket/a/b/c", "bucket/a/b", "bucket/a", "bucket", RootMarker},
		Ancestors("cos://bucket/a/b/c"))
	assert.Equal(t, []string{RootMarker}, Ancestors(""))
}

func TestBaseAndDepth(t *testing.T) {
	assert.Equal(t, "c", Base("bucket/a/b/c"))
	assert.Equal(t, "bucket", Base("cos://bucket"))
	assert.Equal(t, 4, Depth("bucket/a/b/c"))
	assert.Equal(t, 1, Depth("bucket/"))
	assert.Equal(t, 0, Depth(""))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "bucket/key", Join("bucket", "/key"))
	assert.Equal(t, "bucket", Join("bucket", ""))
}
