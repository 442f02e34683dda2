package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

// signalRunner is the cmn.RunGroup "main" runner: its Run blocks until
// SIGTERM/SIGINT arrives, at which point cmn.RunGroup stops every other
// registered runner in turn.
type signalRunner struct {
	sigCh  chan os.Signal
	doneCh chan struct{}
}

func newSignalRunner() *signalRunner {
	r := &signalRunner{
		sigCh:  make(chan os.Signal, 1),
		doneCh: make(chan struct{}),
	}
	signal.Notify(r.sigCh, syscall.SIGTERM, syscall.SIGINT)
	return r
}

func (r *signalRunner) Name() string { return "signal" }

func (r *signalRunner) Run() error {
	select {
	case sig := <-r.sigCh:
		glog.Infof("weatherd: received %s, shutting down", sig)
		return nil
	case <-r.doneCh:
		return nil
	}
}

func (r *signalRunner) Stop(err error) {
	select {
	case <-r.doneCh:
	default:
		close(r.doneCh)
	}
}
