// Package publish writes projects out as Markdown files.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"taskdeck/internal/model"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteProject writes <toDir>/projects/<id>.md.
func WriteProject(p model.Project, toDir string, opt WriteOptions) (WriteResult, error) {
	if strings.TrimSpace(p.ID) == "" {
		return WriteResult{}, errors.New("missing project id")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	outDir := filepath.Join(toDir, "projects")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}
	outPath := filepath.Join(outDir, p.ID+".md")
	if err := writeFile(outPath, []byte(RenderProjectMarkdown(p)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
