package crud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackingStore_Read(t *testing.T) {
	testcases := []struct {
		name      string
		autoclose bool
	}{
		{name: "Default AutoClose Connections", autoclose: true},
		{name: "Self Managed Connections", autoclose: false},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewMockStore()
			require.NoError(t, s.Save(testItemType, testGroup, "key1", []byte("value1")))
			bs := NewBackingStore(s)
			bs.AutoClose = tc.autoclose

			val, err := bs.Read(testItemType, testGroup, "key1")
			require.NoError(t, err, "expected Read to succeed")
			assert.Equal(t, "value1", string(val), "Read returned the wrong data")

			assert.Equal(t, 1, s.GetConnectCount(), "Connect should have been called once")
			if tc.autoclose {
				assert.Equal(t, 1, s.GetCloseCount(), "Close should have been automatically called")
			} else {
				assert.Equal(t, 0, s.GetCloseCount(), "Close should not be automatically called")
			}

			_, err = bs.Read(testItemType, testGroup, "key1")
			require.NoError(t, err)
			if tc.autoclose {
				assert.Equal(t, 2, s.GetConnectCount(), "Connect should be called again after the connection is closed")
			} else {
				assert.Equal(t, 1, s.GetConnectCount(), "Connect should only be called once when the connection remains open")
			}
		})
	}
}

func TestBackingStore_ReadAll(t *testing.T) {
	s := NewMockStore()
	require.NoError(t, s.Save(testItemType, testGroup, "b", []byte("2")))
	require.NoError(t, s.Save(testItemType, testGroup, "a", []byte("1")))
	require.NoError(t, s.Save(testItemType, "other", "c", []byte("3")))
	bs := NewBackingStore(s)

	results, err := bs.ReadAll(testItemType, testGroup)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2")}, results, "ReadAll should follow List order and stay within the group")
	assert.Equal(t, 1, s.GetConnectCount(), "ReadAll should use a single connection")
	assert.Equal(t, 1, s.GetCloseCount())
}

func TestBackingStore_Delete(t *testing.T) {
	s := NewMockStore()
	require.NoError(t, s.Save(testItemType, testGroup, "key1", []byte("value1")))
	bs := NewBackingStore(s)

	require.NoError(t, bs.Delete(testItemType, testGroup, "key1"))
	_, err := bs.Read(testItemType, testGroup, "key1")
	assert.Equal(t, ErrRecordDoesNotExist, err)

	count, err := bs.Count(testItemType, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMockStoreWithoutGroups(t *testing.T) {
	s := NewMockStore()
	is := assert.New(t)
	is.NoError(s.Save(testItemType, "", "test", []byte("data")))
	is.NoError(s.Save(testItemType, testGroup, "grouped", []byte("data")))

	list, err := s.List(testItemType, "")
	is.NoError(err)
	is.Equal([]string{"test"}, list)

	data, err := s.Read(testItemType, "", "not-exist")
	is.EqualError(err, ErrRecordDoesNotExist.Error())
	is.Empty(data)
}
