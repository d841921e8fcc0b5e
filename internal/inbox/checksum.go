package inbox

import (
	"bytes"
	"clubctl/internal/logger"
	"crypto/sha256"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ChecksumFilter drops events for archives whose content was already seen,
// so touching or re-copying the same ZIP does not upload it twice.
type ChecksumFilter struct {
	mu   sync.Mutex
	seen map[string][]byte
}

func NewChecksumFilter() *ChecksumFilter {
	return &ChecksumFilter{
		seen: make(map[string][]byte),
	}
}

func (cf *ChecksumFilter) Run(inCh <-chan Event) <-chan Event {
	outCh := make(chan Event, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			sum, err := checksum(event.Path)
			if err != nil {
				logger.Log.Debug("checksum failed, skipping",
					zap.String("path", event.Path),
					zap.Error(err))
				continue
			}

			if cf.remember(event.Path, sum) {
				outCh <- event
			} else {
				logger.Log.Debug("archive already submitted, skipping",
					zap.String("path", event.Path))
			}
		}
	}()

	return outCh
}

// remember records sum for path and reports whether it differs from the
// last content seen there.
func (cf *ChecksumFilter) remember(path string, sum []byte) bool {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	if prev, ok := cf.seen[path]; ok && bytes.Equal(prev, sum) {
		return false
	}
	cf.seen[path] = sum
	return true
}

func checksum(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}
