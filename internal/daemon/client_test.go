package daemon

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectWriter records everything written to it.
type collectWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *collectWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *collectWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf.Bytes()...)
}

func TestOutbufDrainsInOrder(t *testing.T) {
	o := newOutbuf()
	w := &collectWriter{}

	done := make(chan struct{})
	go func() {
		o.Run(w)
		close(done)
	}()

	o.Append([]byte("one "))
	o.Append([]byte("two "))
	o.Append([]byte("three"))

	require.Eventually(t, func() bool {
		return string(w.Bytes()) == "one two three"
	}, time.Second, 5*time.Millisecond)

	o.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not stop after Close")
	}
}

func TestOutbufAppendAfterCloseDropped(t *testing.T) {
	o := newOutbuf()
	o.Close()
	o.Append([]byte("late"))
	assert.Zero(t, o.Pending())
}

func TestOutbufPending(t *testing.T) {
	o := newOutbuf()
	o.Append([]byte("abcd"))
	assert.Equal(t, 4, o.Pending())
	// No writer running; Close discards.
	o.Close()
	assert.Zero(t, o.Pending())
}

func TestOutbufSlowWriterDoesNotBlockAppend(t *testing.T) {
	o := newOutbuf()
	defer o.Close()

	// No writer at all: appends must still return immediately and the
	// buffer must grow unboundedly.
	payload := bytes.Repeat([]byte("x"), 1024)
	doneCh := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			o.Append(payload)
		}
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked without a draining writer")
	}
	assert.Equal(t, 1000*len(payload), o.Pending())
}

func TestClientCloseIsIdempotentWithConn(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	cl := &client{id: 1, conn: a, out: newOutbuf()}
	cl.close()
	cl.close()
}
