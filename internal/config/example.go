package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Example is the annotated default configuration written by "cyberdefense init".
//
//go:embed cyberdefense.example.toml
var Example []byte

// WriteExample writes Example to path. An existing file is left alone unless force is set.
func WriteExample(path string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(Example); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
