package exception

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGoRecovers(t *testing.T) {
	done := make(chan struct{})
	SafeGo("test-panic", func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestSafeGoWithPanicExits(t *testing.T) {
	codes := make(chan int, 1)
	exit = func(code int) { codes <- code }
	defer func() { exit = os.Exit }()

	SafeGoWithPanic("test-fatal", func() {
		panic("out of memory")
	})
	select {
	case code := <-codes:
		assert.Equal(t, 1, code)
	case <-time.After(time.Second):
		require.Fail(t, "exit was not called")
	}
}
