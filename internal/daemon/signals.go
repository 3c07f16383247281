package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler turns OS signals into shutdown and reload requests.
type SignalHandler struct {
	signals chan os.Signal
	reload  func()
}

// NewSignalHandler creates a handler. reload, if set, runs on SIGHUP.
func NewSignalHandler(reload func()) *SignalHandler {
	return &SignalHandler{
		signals: make(chan os.Signal, 1),
		reload:  reload,
	}
}

// Setup registers signal handlers.
func (h *SignalHandler) Setup() {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

// Wait blocks until a shutdown signal arrives or ctx is cancelled. SIGHUP
// triggers a reload and keeps waiting.
func (h *SignalHandler) Wait(ctx context.Context) os.Signal {
	for {
		select {
		case sig := <-h.signals:
			if sig == syscall.SIGHUP && h.reload != nil {
				h.reload()
				continue
			}
			return sig
		case <-ctx.Done():
			return nil
		}
	}
}

// Cleanup stops signal delivery.
func (h *SignalHandler) Cleanup() {
	signal.Stop(h.signals)
}
