package proxy

import (
	"io"
	"sync"
)

const relayBufferSize = 32 * 1024

var relayBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, relayBufferSize)
		return &b
	},
}

// copyBuffer is io.Copy with a pooled buffer. The buffer is unused when the
// connections can splice directly.
func copyBuffer(dst io.Writer, src io.Reader) (int64, error) {
	b := relayBuffers.Get().(*[]byte)
	defer relayBuffers.Put(b)
	return io.CopyBuffer(dst, src, *b)
}
