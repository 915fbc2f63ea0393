package crud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testItemType = "test-items"
	testGroup    = "test-group"
)

func TestFilesystemStore(t *testing.T) {
	is := assert.New(t)
	s := NewFileSystemStore(t.TempDir(), map[string]string{testItemType: ".yaml"})
	key := "testkey"
	val := []byte("testval")
	is.NoError(s.Save(testItemType, testGroup, key, val))
	list, err := s.List(testItemType, testGroup)
	is.NoError(err)
	is.Equal([]string{"testkey"}, list)
	d, err := s.Read(testItemType, testGroup, "testkey")
	is.NoError(err)
	is.Equal([]byte("testval"), d)
	is.NoError(s.Delete(testItemType, testGroup, key))
	list, err = s.List(testItemType, testGroup)
	is.NoError(err)
	is.Len(list, 0)
}

func TestFileSystemStore_Count(t *testing.T) {
	s := NewFileSystemStore(t.TempDir(), map[string]string{testItemType: ".yaml"})

	count, err := s.Count(testItemType, "")
	require.NoError(t, err, "Count failed")
	assert.Equal(t, 0, count, "Count should be 0 for an empty datastore")

	err = s.Save(testItemType, "", "key1", []byte("value1"))
	require.NoError(t, err, "Save failed")

	count, err = s.Count(testItemType, "")
	require.NoError(t, err, "Count failed")
	assert.Equal(t, 1, count, "Count should be 1 after adding an item")

	err = s.Delete(testItemType, "", "key1")
	require.NoError(t, err, "Delete failed")

	count, err = s.Count(testItemType, "")
	require.NoError(t, err, "Count failed")
	assert.Equal(t, 0, count, "Count should be 0 after deleting the item")
}

func TestFileSystemStore_ListIsSorted(t *testing.T) {
	s := NewFileSystemStore(t.TempDir(), map[string]string{"*": ".yaml"})
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, s.Save(testItemType, testGroup, name, []byte(name)))
	}
	list, err := s.List(testItemType, testGroup)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, list)
}

func TestFileSystemStore_ReadMissing(t *testing.T) {
	s := NewFileSystemStore(t.TempDir(), nil)
	_, err := s.Read(testItemType, testGroup, "missing")
	require.Error(t, err)
	assert.Equal(t, ErrRecordDoesNotExist, errors.Cause(err))
}

func TestFileSystemStore_Permissions(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSystemStore(dir, nil)
	require.NoError(t, s.Save(testItemType, testGroup, "key", []byte("secret")))

	fi, err := os.Stat(filepath.Join(dir, testItemType, testGroup, "key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

	fi, err = os.Stat(filepath.Join(dir, testItemType, testGroup))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), fi.Mode().Perm())
}

func TestFileSystemStore_RejectsTraversal(t *testing.T) {
	s := NewFileSystemStore(t.TempDir(), nil)
	for _, tc := range []struct {
		name                  string
		itemType, group, item string
	}{
		{name: "dotdot group", itemType: testItemType, group: "..", item: "x"},
		{name: "slash in name", itemType: testItemType, group: testGroup, item: "a/b"},
		{name: "empty name", itemType: testItemType, group: testGroup, item: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, s.Save(tc.itemType, tc.group, tc.item, []byte("x")))
		})
	}
}
