package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/edumarques81/coverfetch/internal/failure"
)

// maxSymlinkHops bounds symlink resolution, like the kernel's ELOOP limit.
const maxSymlinkHops = 40

// WriteFile replaces the contents of path with data through a temp file and
// rename. A symlink at path is followed, so its target is updated and the
// link stays in place. An existing file keeps its mode; a new one gets perm.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	target, err := resolveSymlinks(path)
	if err != nil {
		return fmt.Errorf("%w: failed to resolve %s: %v", failure.ErrIO, path, err)
	}

	mode := perm
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+"-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", failure.ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %v", failure.ErrIO, path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to chmod %s: %v", failure.ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", failure.ErrIO, path, err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", failure.ErrIO, path, err)
	}
	return nil
}

// resolveSymlinks follows path until it names a regular file or nothing.
// Dangling links resolve to their missing target so the first write
// creates it.
func resolveSymlinks(path string) (string, error) {
	for hop := 0; hop < maxSymlinkHops; hop++ {
		info, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			return path, nil
		}

		link, err := os.Readlink(path)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(path), link)
		}
		path = link
	}
	return "", fmt.Errorf("too many levels of symbolic links")
}
