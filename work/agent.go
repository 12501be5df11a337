// Package work offloads mining to a dedicated goroutine so the Node
// engine's single inbox consumer stays responsive, publishing results back
// through a channel rather than blocking the caller (spec.md §5). Adapted
// from the teacher's work.CpuAgent (work/agent.go), generalized from a
// consensus.Engine/p2p.ConnType-aware seal loop to a direct
// ledger/types.Block.Mine call.
package work

import (
	"crypto/ecdsa"
	"sync"
	"sync/atomic"

	"github.com/driftchain/driftchain/ledger/types"
	glog "github.com/driftchain/driftchain/log"
	"github.com/driftchain/driftchain/metrics"
)

var logger = glog.NewModuleLogger(glog.Work)

// Task is one mining assignment: the READY block to seal plus the miner's
// keypair.
type Task struct {
	Block *types.Block
	SK    *ecdsa.PrivateKey
	PK    []byte
}

// Result is sent on the agent's return channel once a Task finishes, either
// with the newly sealed successor or an error.
type Result struct {
	Task      *Task
	Successor *types.Block
	Err       error
}

// CpuAgent runs at most one mining Task at a time, cancelling any
// in-flight search when a newer Task arrives.
type CpuAgent struct {
	mu sync.Mutex

	workCh        chan *Task
	stop          chan struct{}
	quitCurrentOp chan struct{}
	returnCh      chan<- *Result

	isMining int32
}

func NewCpuAgent(returnCh chan<- *Result) *CpuAgent {
	return &CpuAgent{
		returnCh: returnCh,
		stop:     make(chan struct{}, 1),
		workCh:   make(chan *Task, 1),
	}
}

func (a *CpuAgent) Work() chan<- *Task { return a.workCh }

func (a *CpuAgent) Start() {
	if !atomic.CompareAndSwapInt32(&a.isMining, 0, 1) {
		return
	}
	go a.update()
}

func (a *CpuAgent) Stop() {
	if !atomic.CompareAndSwapInt32(&a.isMining, 1, 0) {
		return
	}
	a.stop <- struct{}{}
done:
	for {
		select {
		case <-a.workCh:
		default:
			break done
		}
	}
}

func (a *CpuAgent) update() {
out:
	for {
		select {
		case task := <-a.workCh:
			a.mu.Lock()
			if a.quitCurrentOp != nil {
				close(a.quitCurrentOp)
			}
			a.quitCurrentOp = make(chan struct{})
			go a.mine(task, a.quitCurrentOp)
			a.mu.Unlock()
		case <-a.stop:
			a.mu.Lock()
			if a.quitCurrentOp != nil {
				close(a.quitCurrentOp)
				a.quitCurrentOp = nil
			}
			a.mu.Unlock()
			break out
		}
	}
}

func (a *CpuAgent) mine(task *Task, stop <-chan struct{}) {
	metrics.MiningInFlight.Inc()
	defer metrics.MiningInFlight.Dec()

	successor, err := task.Block.Mine(task.SK, task.PK, stop)
	if err != nil {
		logger.Warn("mining failed", "err", err)
		a.returnCh <- &Result{Task: task, Err: err}
		return
	}
	if successor == nil {
		return // stopped before completion
	}
	logger.Info("block mined", "id", task.Block.ID, "hash", task.Block.Hash)
	metrics.BlocksMined.Inc()
	a.returnCh <- &Result{Task: task, Successor: successor}
}
