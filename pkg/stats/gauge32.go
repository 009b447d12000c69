package stats

import (
	"sync/atomic"
	"time"
)

type Gauge32 struct {
	val uint32
}

func NewGauge32(name string) *Gauge32 {
	return registry.getOrAdd(name, &Gauge32{}).(*Gauge32)
}

func (g *Gauge32) Inc() {
	atomic.AddUint32(&g.val, 1)
}

func (g *Gauge32) Dec() {
	atomic.AddUint32(&g.val, ^uint32(0))
}

func (g *Gauge32) Set(val int) {
	atomic.StoreUint32(&g.val, uint32(val))
}

func (g *Gauge32) Peek() uint32 {
	return atomic.LoadUint32(&g.val)
}

func (g *Gauge32) ReportGraphite(prefix, buf []byte, now time.Time) []byte {
	val := atomic.LoadUint32(&g.val)
	buf = WriteUint32(buf, prefix, []byte("gauge32"), val, now)
	return buf
}
