package lookup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindResumes maps employee names to their resume paths. An employee's
// resume is the file "<name>.docx" in dir; employees without one are
// simply absent from the result.
func FindResumes(dir string, employees []string) map[string]string {
	resumes := make(map[string]string)
	for _, emp := range employees {
		path := filepath.Join(dir, emp+".docx")
		if _, err := os.Stat(path); err == nil {
			resumes[emp] = path
		}
	}
	return resumes
}

// FindProjectSheets maps project sheet names (file name without extension)
// to their paths, covering every PDF directly in dir.
func FindProjectSheets(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read project sheet folder: %w", err)
	}

	sheets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		sheets[strings.TrimSuffix(name, filepath.Ext(name))] = filepath.Join(dir, name)
	}
	return sheets, nil
}
