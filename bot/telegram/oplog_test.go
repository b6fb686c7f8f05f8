package telegram

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	botpkg "github.com/song163bot/song163bot/bot"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(string, ...any)        {}
func (l nopLogger) With(...any) botpkg.Logger { return l }

func TestChannelLoggerLogAfterClose(t *testing.T) {
	cl := NewChannelLogger(nil, 0, nopLogger{})
	cl.Close()

	assert.NotPanics(t, func() {
		cl.Log("late event")
	})
}

func TestChannelLoggerCloseTwice(t *testing.T) {
	cl := NewChannelLogger(nil, 0, nopLogger{})

	assert.NotPanics(t, func() {
		cl.Close()
		cl.Close()
	})
}

func TestChannelLoggerConcurrentLogAndClose(t *testing.T) {
	cl := NewChannelLogger(nil, 0, nopLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cl.Log("event")
			}
		}()
	}
	cl.Close()
	wg.Wait()
}
