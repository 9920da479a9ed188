// Package sdk patches the go sdk so goloader, and with it the goself loader, can be built.
package sdk

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZenLiuCN/fn"
	"go.uber.org/zap"
)

// Dirs returns the sdk internals goloader reads and the place they are copied to.
func Dirs(goroot string) (src, dest string) {
	return filepath.Join(goroot, "src", "cmd", "internal"), filepath.Join(goroot, "src", "cmd", "objfile")
}

// Prepare copies the internals of the sdk at goroot, it does nothing when they are already copied.
func Prepare(log *zap.Logger, goroot string) (err error) {
	src, dir := Dirs(goroot)
	if _, err = os.Stat(dir); err == nil {
		log.Debug("did nothing", zap.String("dir", dir))
		return
	} else if !os.IsNotExist(err) {
		return
	}
	log.Debug("prepare go sdk", zap.String("from", src), zap.String("to", dir))
	if err = CopyDir(src, dir, nil); err != nil {
		return
	}
	log.Debug("copied", zap.String("dir", dir))
	return
}

// Clean removes the copied internals.
func Clean(log *zap.Logger, goroot string) (err error) {
	_, dir := Dirs(goroot)
	if _, err = os.Stat(dir); err != nil {
		log.Debug("did nothing", zap.String("dir", dir))
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}
	if err = os.RemoveAll(dir); err == nil {
		log.Debug("removed", zap.String("dir", dir))
	}
	return
}

// CopyFile from src to dest with optional src file info, dest gets the mode of src.
func CopyFile(src string, dest string, si fs.FileInfo) (err error) {
	var sf, df *os.File
	if sf, err = os.Open(src); err != nil {
		return
	}
	defer fn.IgnoreClose(sf)
	if si == nil {
		if si, err = sf.Stat(); err != nil {
			return
		}
	}
	if df, err = os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, si.Mode().Perm()); err != nil {
		return
	}
	defer fn.IgnoreClose(df)
	if _, err = io.Copy(df, sf); err != nil {
		return
	}
	// umask may have narrowed the creation mode
	return df.Chmod(si.Mode().Perm())
}

// CopyDir from src to dest with optional src file info
func CopyDir(src string, dest string, si fs.FileInfo) (err error) {
	if si == nil {
		if si, err = os.Stat(src); err != nil {
			return err
		}
	}
	if err = os.MkdirAll(dest, si.Mode()); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		var info fs.FileInfo
		if info, err = e.Info(); err != nil {
			return
		}
		sp, dp := filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())
		if e.IsDir() {
			err = CopyDir(sp, dp, info)
		} else {
			err = CopyFile(sp, dp, info)
		}
		if err != nil {
			return
		}
	}
	return
}
