package publish

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// archiveName is the object each run's artifact bundle is stored under.
const archiveName = "artifacts.tar.lz4"

// Archive bundles the named files into a single lz4-compressed tar object
// and uploads it to the store under <runID>/artifacts.tar.lz4, streaming
// without a temporary file. Files that do not exist are skipped: profiler
// artifacts are best-effort and may never have been flushed. Returns the
// object key.
func Archive(ctx context.Context, store Store, runID string, files []string) (string, error) {
	key := path.Join(runID, archiveName)
	pr, pw := io.Pipe()

	go func() {
		lzw := lz4.NewWriter(pw)
		tw := tar.NewWriter(lzw)
		err := func() error {
			for _, file := range files {
				if err := addFile(tw, file); err != nil {
					return err
				}
			}
			if err := tw.Close(); err != nil {
				return err
			}
			return lzw.Close()
		}()
		_ = pw.CloseWithError(err)
	}()

	if err := store.Put(ctx, key, pr); err != nil {
		// Unblock the archiving goroutine if the upload died first.
		_ = pr.CloseWithError(err)
		return "", err
	}
	return key, nil
}

func addFile(tw *tar.Writer, file string) error {
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(file)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// Extract unpacks an archive produced by Archive into dir and returns the
// extracted file paths.
func Extract(ctx context.Context, store Store, key, dir string) ([]string, error) {
	r, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []string
	tr := tar.NewReader(lz4.NewReader(r))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		// Archive members are base names; never let one escape dir.
		target := filepath.Join(dir, filepath.Base(hdr.Name))
		f, err := os.Create(target)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		out = append(out, target)
	}
}
