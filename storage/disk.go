// Package storage holds uploaded media objects such as avatars.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// Object is a stored blob and the content type it was saved with.
type Object struct {
	Data        []byte
	ContentType string
}

// DiskStore keeps objects as files under a root directory. The content type
// lives next to the data in a ".type" file.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// path maps "avatars/<uid>" style keys to files, rejecting anything that
// would escape the root.
func (d *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || strings.Contains(key, "..") || clean == "/" {
		return "", ErrInvalidKey
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (d *DiskStore) Put(key string, data []byte, contentType string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := writeAtomic(path, data); err != nil {
		return err
	}
	return writeAtomic(path+".type", []byte(contentType))
}

func (d *DiskStore) Get(key string) (*Object, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ct, err := os.ReadFile(path + ".type")
	if err != nil {
		ct = []byte("application/octet-stream")
	}
	return &Object{Data: data, ContentType: string(ct)}, nil
}

func (d *DiskStore) Delete(key string) error {
	path, err := d.path(key)
	if err != nil {
		return err
	}
	os.Remove(path + ".type")
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
