package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	t.Run("WithPath", func(t *testing.T) {
		err := New(CodeSymlinkCycle, "a/link", "already visited")
		assert.Equal(t, "[SYMLINK_CYCLE] a/link: already visited", err.Error())
	})

	t.Run("WithoutPath", func(t *testing.T) {
		err := New(CodeInvalidConfig, "", "bad value")
		assert.Equal(t, "[INVALID_CONFIG] bad value", err.Error())
	})

	t.Run("Wrapped", func(t *testing.T) {
		err := Wrap(fs.ErrPermission, CodePermissionDenied, "x", "open")
		assert.Contains(t, err.Error(), "permission denied")
		assert.ErrorIs(t, err, fs.ErrPermission)
	})
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeIO, "x", "noop"))
}

func TestCodeMatching(t *testing.T) {
	base := Newf(CodeDiskFull, "big.bin", "wrote %d bytes", 10)
	wrapped := fmt.Errorf("copy failed: %w", base)

	assert.True(t, HasCode(wrapped, CodeDiskFull))
	assert.False(t, HasCode(wrapped, CodeSourceVanished))
	assert.Equal(t, CodeDiskFull, CodeOf(wrapped))
	assert.Equal(t, CodeIO, CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}
