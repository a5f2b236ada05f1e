package locality

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromAttributes(t *testing.T) {
	tests := []struct {
		name  string
		attrs uint32
		want  Status
	}{
		{"plain file", 0x20, Local},
		{"unpinned and recall", attrUnpinned | attrRecallOnDataAccess | 0x20, OnDemand},
		{"offline", attrOffline, OnDemand},
		{"unpinned only", attrUnpinned, Unknown},
		{"recall only", attrRecallOnDataAccess, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromAttributes(tt.attrs))
		})
	}
}

func TestStatusFromStatFlags(t *testing.T) {
	assert.Equal(t, Local, statusFromStatFlags(0))
	assert.Equal(t, OnDemand, statusFromStatFlags(sfDataless))
	assert.Equal(t, OnDemand, statusFromStatFlags(sfDataless|0x1))
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, Local.Safe())
	assert.False(t, OnDemand.Safe())
	assert.False(t, Unknown.Safe())

	assert.True(t, OnDemand.WillTriggerDownload())
	assert.False(t, Unknown.WillTriggerDownload())

	assert.Equal(t, "on-demand", OnDemand.String())
	assert.Contains(t, Local.Description(), "immediately available")
}

func TestFS_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	assert.Equal(t, Local, FS{}.Status(path))
	assert.False(t, IsRemotePlaceholder(FS{}, path))
}

func TestFS_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.png")
	assert.Equal(t, Unknown, FS{}.Status(path))
	assert.True(t, IsRemotePlaceholder(FS{}, path))
}

func TestCheckerFunc(t *testing.T) {
	c := CheckerFunc(func(path string) Status {
		if path == "cloud.jpg" {
			return OnDemand
		}
		return Local
	})

	assert.True(t, IsRemotePlaceholder(c, "cloud.jpg"))
	assert.False(t, IsRemotePlaceholder(c, "disk.jpg"))
}
