package utils

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// URIToFilePath converts a file:// URI to a file system path.
func URIToFilePath(u string) string {
	if !strings.HasPrefix(u, "file://") {
		return u
	}

	path := strings.TrimPrefix(u, "file://")
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}

	// Windows URIs look like file:///C:/path; strip the leading slash.
	if runtime.GOOS == "windows" && len(path) > 2 && path[0] == '/' && path[2] == ':' {
		path = filepath.FromSlash(path[1:])
	}

	return path
}

// FilePathToURI converts a file system path to a file:// URI.
func FilePathToURI(path string) string {
	path = filepath.ToSlash(filepath.Clean(path))

	if runtime.GOOS == "windows" && filepath.IsAbs(path) {
		return "file:///" + path
	}
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return "file://" + path
}
