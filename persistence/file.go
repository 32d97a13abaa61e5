package persistence

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// SaveToFile writes a snapshot to path atomically: the save callback writes
// into a temp file in the same directory, which is fsynced and renamed over
// the target, followed by a directory sync. A crash mid-save leaves the
// previous snapshot intact.
func SaveToFile(path string, save func(w *Writer) error, optFns ...WriterOption) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	bw := bufio.NewWriter(f)
	sw := NewWriter(bw, optFns...)

	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := save(sw); err != nil {
		return fail(err)
	}
	if err := sw.Close(); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return syncDir(filepath.Dir(path))
}

// LoadFromFile opens a snapshot file and hands the reader to load.
func LoadFromFile(path string, load func(r *Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	sr, err := NewReader(bufio.NewReader(f))
	if err != nil {
		return err
	}
	return load(sr)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
