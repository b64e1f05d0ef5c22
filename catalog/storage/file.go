package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type FileSource struct {
	FilePath string
}

func NewFileSource(filePath string) *FileSource {
	return &FileSource{FilePath: filePath}
}

func (f *FileSource) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.FilePath)
}

type FileSink struct {
	FilePath string
}

func NewFileSink(filePath string) *FileSink {
	return &FileSink{FilePath: filePath}
}

// Save writes data to the file, creating parent directories as needed.
func (f *FileSink) Save(ctx context.Context, data []byte) error {
	if dir := filepath.Dir(f.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(f.FilePath, data, 0644)
}
