package cmn

import (
	"fmt"

	"github.com/golang/glog"
	"go.uber.org/atomic"
)

// Runner is implemented by every long-lived goroutine the daemon manages
// (the ETL orchestrator ticker, the health listener, ...).
type Runner interface {
	Run() error
	Stop(err error)
	Name() string
}

// RunGroup starts every registered Runner, waits for the first one to
// exit, then stops the rest.
type RunGroup struct {
	rs    map[string]Runner
	errCh chan error

	stopping atomic.Bool
}

func NewRunGroup() *RunGroup {
	return &RunGroup{rs: make(map[string]Runner, 4)}
}

func (g *RunGroup) Add(r Runner) {
	if r.Name() == "" {
		panic("cmn: runner must have a name")
	}
	if _, exists := g.rs[r.Name()]; exists {
		panic(fmt.Sprintf("cmn: duplicate runner %q", r.Name()))
	}
	g.rs[r.Name()] = r
}

// Run starts all runners and blocks until the first runner exits
// (normally mainName's), then stops every other runner, including
// mainName's if it is still running, and waits for them to drain.
func (g *RunGroup) Run(mainName string) error {
	var mainDone atomic.Bool
	g.errCh = make(chan error, len(g.rs))
	g.stopping.Store(false)

	for _, r := range g.rs {
		go func(r Runner) {
			err := r.Run()
			if err != nil {
				glog.Warningf("cmn: runner [%s] exited with err [%v]", r.Name(), err)
			}
			if r.Name() == mainName {
				mainDone.Store(true)
			}
			g.errCh <- err
		}(r)
	}

	err := <-g.errCh
	g.stopping.Store(true)
	if main, ok := g.rs[mainName]; ok && !mainDone.Load() {
		main.Stop(err)
	}
	for _, r := range g.rs {
		if r.Name() != mainName {
			r.Stop(err)
		}
	}
	for i := 0; i < len(g.rs)-1; i++ {
		<-g.errCh
	}
	return err
}
