package wire

import "sync"

// bufPool recycles the scratch buffers Encode uses to build outbound
// packets. 4KB covers the overwhelming majority of control packets; larger
// PUBLISH payloads fall back to a one-off allocation.
var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 4096)
		return &buf
	},
}

// GetBuffer returns a zero-length buffer with at least the pooled capacity.
func GetBuffer() *[]byte {
	return bufPool.Get().(*[]byte)
}

// PutBuffer returns buf to the pool. Buffers grown past the pooled
// capacity are dropped rather than retained, to bound steady-state memory.
func PutBuffer(buf *[]byte) {
	if cap(*buf) > 64*1024 {
		return
	}
	*buf = (*buf)[:0]
	bufPool.Put(buf)
}
