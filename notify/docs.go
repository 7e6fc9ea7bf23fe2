package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/leave-ledger/leave"
)

// FileDocumentStore keeps attached documents on the local filesystem under
// a root directory. The reference it returns is the path relative to root.
type FileDocumentStore struct {
	root string
}

func NewFileDocumentStore(root string) *FileDocumentStore {
	return &FileDocumentStore{root: root}
}

func (s *FileDocumentStore) StoreDocument(_ context.Context, data []byte, path string) (string, error) {
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid document path %q", path)
	}
	full := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return clean, nil
}

func (s *FileDocumentStore) DeleteDocument(_ context.Context, ref string) error {
	clean := filepath.Clean(ref)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid document reference %q", ref)
	}
	return os.Remove(filepath.Join(s.root, clean))
}

var _ leave.DocumentStore = (*FileDocumentStore)(nil)
