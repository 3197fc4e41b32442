package service

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// Export File Storage
// ============================================================

// Storage раскладывает артефакты экспорта по каталогам:
// root/<exportID>/plan.dxf, root/<exportID>/plan.dwg.
type Storage struct {
	root string
}

func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) ExportDir(exportID string) string {
	return filepath.Join(s.root, exportID)
}

func (s *Storage) FilePath(exportID, filename string) string {
	return filepath.Join(s.ExportDir(exportID), filename)
}

func (s *Storage) EnsureDir(exportID string) error {
	if err := os.MkdirAll(s.ExportDir(exportID), 0o755); err != nil {
		return fmt.Errorf("mkdir export dir: %w", err)
	}
	return nil
}

// SaveExport пишет все файлы экспорта на диск.
func (s *Storage) SaveExport(exportID string, files []ExportFile) error {
	if err := s.EnsureDir(exportID); err != nil {
		return err
	}

	for _, file := range files {
		data := []byte(file.Content)
		if file.ContentBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(file.ContentBase64)
			if err != nil {
				return fmt.Errorf("decode %s: %w", file.Filename, err)
			}
			data = decoded
		}
		if err := os.WriteFile(s.FilePath(exportID, file.Filename), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", file.Filename, err)
		}
	}
	return nil
}
