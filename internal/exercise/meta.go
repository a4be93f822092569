package exercise

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSet lists the file name patterns declared in .meta/config.json.
type FileSet struct {
	Solution []string `json:"solution"`
	Test     []string `json:"test"`
	Example  []string `json:"example"`
	Exemplar []string `json:"exemplar"`
	Editor   []string `json:"editor"`
}

// MetaConfig is the typed form of an exercise's .meta/config.json.
// Missing keys keep their zero values.
type MetaConfig struct {
	Title     string   `json:"title"`
	Blurb     string   `json:"blurb"`
	Authors   []string `json:"authors"`
	Files     FileSet  `json:"files"`
	Source    string   `json:"source"`
	SourceURL string   `json:"source_url"`
}

// loadMeta reads .meta/config.json from dir. A missing file yields an empty
// config and no error.
func loadMeta(dir string) (MetaConfig, error) {
	var meta MetaConfig

	data, err := os.ReadFile(filepath.Join(dir, ".meta", "config.json"))
	if errors.Is(err, fs.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("read meta config: %w", err)
	}

	if err := json.Unmarshal(data, &meta); err != nil {
		return MetaConfig{}, fmt.Errorf("parse meta config: %w", err)
	}
	return meta, nil
}

// readOptional returns the file content, or "" when the file does not exist.
func readOptional(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
