package orchestrator

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/report"
)

// runConcurrent processes packages with a worker pool. A package becomes
// ready once every one of its dependencies has finished, whatever the outcome.
func (o *Orchestrator) runConcurrent(ctx context.Context, overall *report.Overall) {
	logger := ctxlog.FromContext(ctx)

	index := make(map[string]int, len(o.schedule))
	for i, p := range o.schedule {
		index[p.Name] = i
	}
	depCount := make([]atomic.Int32, len(o.schedule))
	for i, p := range o.schedule {
		deps, _ := o.graph.Dependencies(p.Name)
		depCount[i].Store(int32(len(deps)))
	}

	readyChan := make(chan int, len(o.schedule))
	for i := range o.schedule {
		if depCount[i].Load() == 0 {
			readyChan <- i
		}
	}

	var wg sync.WaitGroup
	wg.Add(len(o.schedule))

	worker := func(workerID int) {
		logger.Debug("Worker started.", "workerID", workerID)
		for i := range readyChan {
			p := o.schedule[i]
			rep := overall.Packages[i]

			if ctx.Err() != nil {
				o.skip(ctx, overall.RunID, rep)
			} else {
				var stdout, stderr bytes.Buffer
				o.process(ctxlog.With(ctx, "workerID", workerID), overall.RunID, p, rep, &stdout, &stderr)
				o.flush(&stdout, &stderr)
			}

			dependents, _ := o.graph.Dependents(p.Name)
			for _, name := range dependents {
				d := index[name]
				if depCount[d].Add(-1) == 0 {
					logger.Debug("Unlocking dependent package.", "package", name, "dependency", p.Name)
					readyChan <- d
				}
			}
			wg.Done()
		}
		logger.Debug("Worker finished.", "workerID", workerID)
	}

	logger.Debug("Starting worker pool.", "workers", o.opts.Workers)
	for i := 0; i < o.opts.Workers; i++ {
		go worker(i)
	}
	wg.Wait()
	close(readyChan)
}

// flush writes one package's buffered output in a single piece.
func (o *Orchestrator) flush(stdout, stderr *bytes.Buffer) {
	o.outMu.Lock()
	defer o.outMu.Unlock()
	o.opts.Stdout.Write(stdout.Bytes())
	o.opts.Stderr.Write(stderr.Bytes())
}
