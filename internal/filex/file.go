// Package filex has the file helpers the client needs: making room for the
// local database and reading avatar images.
package filex

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// MaxAvatarSize caps avatar uploads.
const MaxAvatarSize = 5 << 20

var (
	ErrTooLarge   = errors.New("file too large")
	ErrNotAnImage = errors.New("not an image")
)

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// ReadImage reads at most max bytes of path and sniffs its content type.
// Files over max and files that do not look like images are refused.
func ReadImage(path string, max int64) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(b)) > max {
		return nil, "", fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, path, max)
	}

	ct := http.DetectContentType(b)
	switch ct {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return b, ct, nil
	}
	return nil, "", fmt.Errorf("%w: %s is %s", ErrNotAnImage, path, ct)
}
