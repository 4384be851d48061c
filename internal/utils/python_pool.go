package utils

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Get after Close.
var ErrPoolClosed = errors.New("pool is closed")

// PythonPool manages up to maxSize PythonHelper instances. Helpers are
// started on demand, and dead ones are replaced on the next Get.
type PythonPool struct {
	idle    chan *PythonHelper
	slots   chan struct{}
	factory func() (*PythonHelper, error)

	mu     sync.Mutex
	all    map[*PythonHelper]struct{}
	closed bool
}

// NewPythonPool creates a new pool of Python helpers.
func NewPythonPool(maxSize int, factory func() (*PythonHelper, error)) (*PythonPool, error) {
	if maxSize <= 0 {
		return nil, errors.New("pool size must be positive")
	}

	p := &PythonPool{
		idle:    make(chan *PythonHelper, maxSize),
		slots:   make(chan struct{}, maxSize),
		factory: factory,
		all:     make(map[*PythonHelper]struct{}),
	}
	for i := 0; i < maxSize; i++ {
		p.slots <- struct{}{}
	}
	return p, nil
}

// Get borrows a PythonHelper from the pool, starting one if a slot is free.
func (p *PythonPool) Get(ctx context.Context) (*PythonHelper, error) {
	for {
		if p.isClosed() {
			return nil, ErrPoolClosed
		}
		select {
		case helper := <-p.idle:
			if helper.Alive() {
				return helper, nil
			}
			p.discard(helper)
		case <-p.slots:
			helper, err := p.factory()
			if err != nil {
				p.slots <- struct{}{}
				return nil, err
			}
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				helper.Close()
				return nil, ErrPoolClosed
			}
			p.all[helper] = struct{}{}
			p.mu.Unlock()
			return helper, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Put returns a PythonHelper to the pool. Dead helpers free their slot.
func (p *PythonPool) Put(helper *PythonHelper) {
	if helper == nil {
		return
	}
	if p.isClosed() {
		helper.Close()
		return
	}
	if !helper.Alive() {
		p.discard(helper)
		return
	}
	p.idle <- helper
}

// Close closes all Python helpers in the pool.
func (p *PythonPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for helper := range p.all {
		helper.Close()
	}
	p.all = nil
}

func (p *PythonPool) discard(helper *PythonHelper) {
	helper.Close()
	p.mu.Lock()
	delete(p.all, helper)
	p.mu.Unlock()
	p.slots <- struct{}{}
}

func (p *PythonPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
