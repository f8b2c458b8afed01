package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger hex-dumps traffic of one channel (serial link, USB/IP).
type RawLogger interface {
	Log(in bool, data []byte)
}

// rawLogger implements RawLogger with thread-safe log.
type rawLogger struct {
	w     io.Writer
	label string
	mu    *sync.Mutex
}

// NewRaw creates a RawLogger writing to w. A nil w yields a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, label: "raw", mu: &sync.Mutex{}}
}

// Labeled returns a logger sharing r's writer whose lines are tagged with
// label, e.g. "link" or "usbip".
func Labeled(r RawLogger, label string) RawLogger {
	rl, ok := r.(*rawLogger)
	if !ok || rl == nil {
		return r
	}
	return &rawLogger{w: rl.w, label: label, mu: rl.mu}
}

// Log emits a single-line raw log with timestamp and hex dump.
// in=true means received, in=false means sent.
func (r *rawLogger) Log(in bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "tx"
	if in {
		dir = "rx"
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %s %d bytes: %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		r.label,
		dir,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
