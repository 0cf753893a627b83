package wire

import "sync"

// BufferPool recycles Buffers by capacity class, replacing the
// "ByteBufferPool" that the original C++ source declared but never
// actually implemented (spec §9 "Buffer pool stub": "the source
// unconditionally allocates... a straightforward free-list keyed by
// capacity class is the intended design").
type BufferPool struct {
	classes sync.Map // capacity (int) -> *sync.Pool
}

// NewBufferPool returns an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

func (p *BufferPool) poolFor(capacity int) *sync.Pool {
	if v, ok := p.classes.Load(capacity); ok {
		return v.(*sync.Pool)
	}
	newPool := &sync.Pool{
		New: func() any { return WithCapacity(capacity) },
	}
	actual, _ := p.classes.LoadOrStore(capacity, newPool)
	return actual.(*sync.Pool)
}

// Get returns a Buffer with at least the requested capacity, reused from
// the free list for that exact capacity class when available.
func (p *BufferPool) Get(capacity int) *Buffer {
	buf := p.poolFor(capacity).Get().(*Buffer)
	buf.read = 0
	buf.write = 0
	return buf
}

// Put returns buf to the pool for its capacity class.
func (p *BufferPool) Put(buf *Buffer) {
	p.poolFor(len(buf.data)).Put(buf)
}
