package codegen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile writes generated to path. An existing file keeps everything
// outside its fenced regions. changed is false when the file already held
// exactly the spliced content.
func WriteFile(path, generated string) (changed bool, err error) {
	content := generated

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		content, err = Splice(string(existing), generated)
		if err != nil {
			return false, fmt.Errorf("splice %s: %w", path, err)
		}
		if content == string(existing) {
			return false, nil
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return false, fmt.Errorf("create output directory: %w", err)
		}
	default:
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// FileName is the output file name for a component
func FileName(component string) string {
	return component + ".tsx"
}
