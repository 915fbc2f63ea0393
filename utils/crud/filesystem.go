package crud

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	dirMode  os.FileMode = 0700
	fileMode os.FileMode = 0600
)

var _ Store = FileSystemStore{}

// NewFileSystemStore creates a Store backed by a file system directory.
// Each item is represented by a file at baseDirectory/itemType/group/name+ext.
//   - baseDirectory: the base directory under which files should be stored, e.g. /var/lib/credbroker
//   - fileExtensions: map from item types to the file extension that should be used (e.g. ".yaml")
//
// Directories are created owner-only and files are written with mode 0600.
func NewFileSystemStore(baseDirectory string, fileExtensions map[string]string) FileSystemStore {
	return FileSystemStore{
		baseDirectory:  baseDirectory,
		fileExtensions: fileExtensions,
	}
}

type FileSystemStore struct {
	baseDirectory string

	// Lookup of which file extension to use for which item type.
	// A "*" entry applies to every item type without its own entry.
	fileExtensions map[string]string
}

func (s FileSystemStore) Count(itemType string, group string) (int, error) {
	names, err := s.List(itemType, group)
	return len(names), err
}

// List returns the item names sorted by file name. A group that has never
// been written to is empty rather than an error.
func (s FileSystemStore) List(itemType string, group string) ([]string, error) {
	dir, err := s.dirOf(itemType, group)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	ext := s.extensionOf(itemType)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext != "" && filepath.Ext(entry.Name()) != ext {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ext))
	}
	return names, nil
}

func (s FileSystemStore) Save(itemType string, group string, name string, data []byte) error {
	filename, err := s.fileNameOf(itemType, group, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), dirMode); err != nil {
		return errors.Wrapf(err, "creating storage directory for %s", filename)
	}
	return os.WriteFile(filename, data, fileMode)
}

func (s FileSystemStore) Read(itemType string, group string, name string) ([]byte, error) {
	filename, err := s.fileNameOf(itemType, group, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrRecordDoesNotExist, "no file found for %s/%s/%s", itemType, group, name)
	}
	return data, err
}

func (s FileSystemStore) Delete(itemType string, group string, name string) error {
	filename, err := s.fileNameOf(itemType, group, name)
	if err != nil {
		return err
	}
	if err := os.Remove(filename); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrRecordDoesNotExist, "no file found for %s/%s/%s", itemType, group, name)
		}
		return err
	}
	return s.removeEmptyGroupDir(itemType, group)
}

func (s FileSystemStore) removeEmptyGroupDir(itemType, group string) error {
	if group == "" {
		return nil
	}
	dir, err := s.dirOf(itemType, group)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return nil
	}
	return os.Remove(dir)
}

func (s FileSystemStore) extensionOf(itemType string) string {
	if ext, ok := s.fileExtensions[itemType]; ok {
		return ext
	}
	return s.fileExtensions["*"]
}

func (s FileSystemStore) dirOf(itemType, group string) (string, error) {
	for _, part := range []string{itemType, group} {
		if err := checkPathElement(part); err != nil {
			return "", err
		}
	}
	return filepath.Join(s.baseDirectory, itemType, group), nil
}

func (s FileSystemStore) fileNameOf(itemType, group, name string) (string, error) {
	if name == "" {
		return "", errors.New("item name must not be empty")
	}
	if err := checkPathElement(name); err != nil {
		return "", err
	}
	dir, err := s.dirOf(itemType, group)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s", name, s.extensionOf(itemType))), nil
}

// checkPathElement rejects values that would escape the base directory.
func checkPathElement(v string) error {
	if v == "." || v == ".." || strings.ContainsAny(v, `/\`) || strings.ContainsRune(v, 0) {
		return fmt.Errorf("invalid storage path element %q", v)
	}
	return nil
}
