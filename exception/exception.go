package exception

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/ethash/logx"
	"github.com/mezonai/ethash/monitoring"
)

// exit is swapped in tests.
var exit = os.Exit

// SafeGo runs fn on a new goroutine and logs, rather than propagates, a panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", "Panic in: ", name, " ", r, "\n", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeGoWithPanic runs fn on a new goroutine and terminates the process if it
// panics. Used for work the node cannot continue without, such as dataset
// generation running out of memory.
func SafeGoWithPanic(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", "Fatal panic in: ", name, " ", r, "\n", string(debug.Stack()))
				exit(1)
			}
		}()
		fn()
	}()
}
