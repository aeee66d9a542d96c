// Package cospath maps user-facing paths onto bucket/key coordinates.
//
// Accepted spellings are equivalent after normalization:
//
//	cos://bucket/dir/file
//	/bucket/dir/file
//	bucket/dir/file
//	bucket/dir/file?versionId=<id>
//
// Every function here is pure and total: malformed input degrades to
// "whole string is the bucket, key empty" instead of failing.
package cospath

import "strings"

const (
	// Protocol is the scheme handled by this package.
	Protocol = "cos"

	// RootMarker is the normalized form of the root (the list of buckets).
	RootMarker = ""

	protocolPrefix = Protocol + "://"
	versionQuery   = "?versionId="
)

// Path is a normalized object location.
//
// Bucket never contains "/" and Key never starts with "/". An empty Bucket
// denotes the root.
type Path struct {
	Bucket    string
	Key       string
	VersionID string
}

// IsRoot reports whether p refers to the list of buckets.
func (p Path) IsRoot() bool {
	return p.Bucket == ""
}

// IsBucket reports whether p refers to a bucket itself.
func (p Path) IsBucket() bool {
	return p.Bucket != "" && p.Key == ""
}

// String renders p in protocol-less form, keeping the version qualifier.
func (p Path) String() string {
	s := Join(p.Bucket, p.Key)
	if p.VersionID != "" {
		s += versionQuery + p.VersionID
	}
	return s
}

// URI renders p with the cos:// scheme.
func (p Path) URI() string {
	return protocolPrefix + p.String()
}

// StripProtocol removes every leading "cos://". An empty result becomes
// RootMarker. StripProtocol is idempotent.
func StripProtocol(path string) string {
	for strings.HasPrefix(path, protocolPrefix) {
		path = path[len(protocolPrefix):]
	}
	if path == "" {
		return RootMarker
	}
	return path
}

// StripProtocolAll applies StripProtocol element-wise.
func StripProtocolAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = StripProtocol(p)
	}
	return out
}

// Normalize strips the protocol and any leading or trailing "/", producing
// the form used as a listing cache key.
func Normalize(path string) string {
	return strings.Trim(StripProtocol(path), "/")
}

// Split parses path into a Path, extracting an optional version qualifier.
func Split(path string) Path {
	path = strings.TrimLeft(StripProtocol(path), "/")

	bucket, key, found := strings.Cut(path, "/")
	if !found {
		return Path{Bucket: bucket}
	}

	key, version := cutVersion(key)
	return Path{Bucket: bucket, Key: key, VersionID: version}
}

// SplitPath returns the bucket and key of path. Any version qualifier is
// removed from the key; use Split to read it.
func SplitPath(path string) (bucket, key string) {
	p := Split(path)
	return p.Bucket, p.Key
}

// SplitPathVersion returns bucket, key and version of path.
func SplitPathVersion(path string) (bucket, key, versionID string) {
	p := Split(path)
	return p.Bucket, p.Key, p.VersionID
}

func cutVersion(key string) (string, string) {
	idx := strings.LastIndex(key, versionQuery)
	if idx < 0 {
		return key, ""
	}
	return key[:idx], key[idx+len(versionQuery):]
}

// Join builds the protocol-less path for bucket and key.
func Join(bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return bucket
	}
	return bucket + "/" + key
}

// Parent returns the normalized parent directory of path. Top-level names
// (buckets) have RootMarker as parent, and so does the root itself.
func Parent(path string) string {
	path = Normalize(path)
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return RootMarker
	}
	return RootMarker + strings.TrimLeft(path[:idx], "/")
}

// Base returns the last element of path.
func Base(path string) string {
	path = Normalize(path)
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// Ancestors returns path and each of its parents, ending with RootMarker.
//
//	Ancestors("bucket/a/b") == ["bucket/a/b", "bucket/a", "bucket", ""]
func Ancestors(path string) []string {
	path = Normalize(path)
	chain := []string{path}
	for path != RootMarker {
		path = Parent(path)
		chain = append(chain, path)
	}
	return chain
}

// Depth returns the number of path elements below the root.
func Depth(path string) int {
	path = Normalize(path)
	if path == RootMarker {
		return 0
	}
	return strings.Count(path, "/") + 1
}
