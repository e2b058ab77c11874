package staging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
)

// Replaceable for tests that need to simulate EXDEV.
var renameFunc = os.Rename

// moveFile moves src to dst. Same-filesystem moves are a single rename;
// cross-device moves fall back to copy, fsync, then remove of the source.
// The source is only removed after the copy is durably on disk.
func moveFile(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if !isEXDEV(err) {
			return err
		}
		return copyThenRemove(src, dst)
	}
	return nil
}

func copyThenRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, dst); err != nil {
		return err
	}
	syncDirBestEffort(dir)
	return os.Remove(src)
}

// WriteFileAtomic atomically replaces the file at path: same-directory temp
// file, fsync, rename.
func WriteFileAtomic(path string, data []byte) error {
	return writeFileAtomic(filepath.Dir(path), filepath.Base(path), data)
}

// writeFileAtomic writes data to dir/name via a same-directory temp file
// and rename, so readers never observe a partial file.
func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}
	syncDirBestEffort(dir)
	return nil
}

func syncDirBestEffort(dir string) {
	// Directory sync semantics are unreliable off Unix; skip there.
	if runtime.GOOS == "windows" {
		return
	}
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	f.Sync()
}

func isEXDEV(err error) bool {
	for {
		if errno, ok := err.(syscall.Errno); ok {
			return errno == syscall.EXDEV
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
		if err == nil {
			return false
		}
	}
}
