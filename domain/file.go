package domain

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const maxExtensionLength = 10

// FileNamer hands out upload filenames made of a millisecond stamp and an extension.
// Stamps are strictly increasing within the process, so two uploads in the same
// millisecond never collide.
type FileNamer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewFileNamer() *FileNamer {
	return &FileNamer{now: time.Now}
}

func (n *FileNamer) Next(ext string) string {
	n.mu.Lock()
	stamp := n.now().UnixMilli()
	if stamp <= n.last {
		stamp = n.last + 1
	}
	n.last = stamp
	n.mu.Unlock()

	name := strconv.FormatInt(stamp, 10)
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// FileExtension keeps the extension of the original name when it is a plain
// alphanumeric token and otherwise sniffs the payload.
func FileExtension(name string, data []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if isPlainExtension(ext) {
		return ext
	}
	return strings.TrimPrefix(mimetype.Detect(data).Extension(), ".")
}

func isPlainExtension(ext string) bool {
	if ext == "" || len(ext) > maxExtensionLength {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
