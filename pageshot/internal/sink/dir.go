package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir writes each capture as <id><ext> next to an <id>.json metadata file.
type Dir struct {
	root string
}

// NewDir creates a Dir sink rooted at root, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("sink: dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Deliver(_ context.Context, c Capture) error {
	if c.ID == "" || strings.ContainsAny(c.ID, `/\`) || c.ID == "." || c.ID == ".." {
		return fmt.Errorf("sink: dir: invalid capture id %q", c.ID)
	}
	base := filepath.Join(d.root, c.ID)

	if len(c.Image) > 0 {
		if err := writeFile(base+extFor(c.Format), c.Image); err != nil {
			return err
		}
	}
	meta, err := json.MarshalIndent(c.Meta(), "", "  ")
	if err != nil {
		return fmt.Errorf("sink: dir: marshal: %w", err)
	}
	return writeFile(base+".json", meta)
}

func (d *Dir) Close() error { return nil }

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sink: dir: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("sink: dir: %w", err)
	}
	return nil
}

func extFor(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return ".jpg"
	case "pdf":
		return ".pdf"
	}
	return ".png"
}
