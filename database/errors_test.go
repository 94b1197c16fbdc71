package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	base := errors.New("constraint failed")

	t.Run("row error returns table and index", func(t *testing.T) {
		err := &Error{Op: "insert", Table: "users", Row: 2, Err: base}
		assert.Equal(t, `storage insert "users" row 2: constraint failed`, err.Error())
		assert.True(t, errors.Is(err, base))
	})

	t.Run("table error omits row", func(t *testing.T) {
		err := &Error{Op: "clear", Table: "users", Row: -1, Err: base}
		assert.Equal(t, `storage clear "users": constraint failed`, err.Error())
	})

	t.Run("exec error omits table", func(t *testing.T) {
		err := &Error{Op: "exec", Row: -1, Err: base}
		assert.Equal(t, `storage exec: constraint failed`, err.Error())
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap("exec", "", -1, nil))
	})

	t.Run("existing error is kept", func(t *testing.T) {
		orig := &Error{Op: "insert", Table: "a", Row: 1, Err: errors.New("x")}
		assert.Same(t, orig, Wrap("exec", "", -1, orig))
	})

	t.Run("plain error is wrapped", func(t *testing.T) {
		err := Wrap("fetch", "users", -1, errors.New("boom"))
		var derr *Error
		assert.True(t, errors.As(err, &derr))
		assert.Equal(t, "fetch", derr.Op)
	})
}
