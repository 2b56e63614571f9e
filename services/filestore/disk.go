// Package filestore keeps uploaded submission files on the local upload volume.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/submission"
)

var ErrInvalidKey = errors.New("invalid file key")

type DiskStore struct {
	root string
}

var _ submission.FileStore = (*DiskStore)(nil)

// NewDiskStore creates the upload directory if needed. A relative UploadDir is resolved against WorkDir.
func NewDiskStore(conf *core.Config) (*DiskStore, error) {
	root := conf.Server.UploadDir
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &DiskStore{root: root}, nil
}

// path shards files by the first two characters of the key.
func (s *DiskStore) path(key string) (string, error) {
	if len(key) < 3 || strings.ContainsAny(key, `/\.`) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, key[:2], key), nil
}

// Save writes to a temporary file first so a failed upload never leaves a partial file behind.
func (s *DiskStore) Save(ctx context.Context, key string, r io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.WithStack(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), key+".*.tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	defer os.Remove(tmp.Name())

	if _, err = io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return errors.WithStack(err)
	}
	if err = tmp.Close(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp.Name(), p))
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, submission.ErrFileNotFound
		}
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// Delete ignores missing files.
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
