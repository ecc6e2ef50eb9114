package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrTermNotFound, "term %q", "zebra")
	assert.Equal(t, `term not present in corpus: term "zebra"`, err.Error())
	assert.True(t, Is(err, ErrTermNotFound))
	assert.True(t, IsLookupMiss(fmt.Errorf("lookup: %w", err)))
	assert.False(t, IsStorage(err))
}

func TestStorage(t *testing.T) {
	err := Storage("writing", "term_index.txt", io.ErrShortWrite)
	assert.True(t, IsStorage(err))
	assert.False(t, IsLookupMiss(err))
	assert.Contains(t, err.Error(), "term_index.txt")

	var appErr *AppError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, io.ErrShortWrite.Error(), appErr.Message)
}
