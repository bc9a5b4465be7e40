// Package io has file helpers for command line tools.
package io

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// CreateAll creates (or truncates) the file name, making its missing parent directories.
//
// dmod is applied only to directories created here.
func CreateAll(name string, fmod os.FileMode, dmod os.FileMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), dmod); err != nil {
		return nil, err
	}
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, fmod)
}

// ReplaceAll writes the file name with write.
//
// The content goes to a temporary file next to name first, and is renamed to name
// only when write succeeds. So, on error, the file name is left as it was.
func ReplaceAll(name string, fmod os.FileMode, dmod os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, dmod); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Chmod(fmod); err != nil {
		return errors.Join(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
