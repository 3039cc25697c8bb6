package cpu

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum thread count to fan out to workers.
// Below this, running inline is faster than the channel round trip.
const parallelThreshold = 64

// workChunk is a range of thread ids for a worker to process.
type workChunk struct {
	start, end int
	fn         func(worker, lo, hi int)
}

// pool is a persistent set of worker goroutines. It is driven by a single
// goroutine (the device executor), so run is never called concurrently.
type pool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

func newPool(numWorkers int) *pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &pool{numWorkers: numWorkers}
}

// start launches the worker goroutines.
func (p *pool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker(workerID int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(workerID, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run calls fn over [0, n) split into one chunk per worker and returns when
// every chunk is done. fn receives the worker index for scratch lookup.
func (p *pool) run(n int, fn func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	if n < parallelThreshold || p.numWorkers == 1 {
		fn(0, 0, n)
		return
	}

	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
