package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "digest worker")
		panic("nil merchant")
	}()

	assert.Contains(t, buf.String(), `"msg":"panic recovered"`)
	assert.Contains(t, buf.String(), "nil merchant")
	assert.Contains(t, buf.String(), "digest worker")
}

func TestRecoverPanicWithCallback(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	called := false
	func() {
		defer RecoverPanicWithCallback(logger, "worker", func() { called = true })
	}()
	assert.False(t, called, "callback only runs after a panic")

	func() {
		defer RecoverPanicWithCallback(logger, "worker", func() { called = true })
		panic("boom")
	}()
	assert.True(t, called)
}
