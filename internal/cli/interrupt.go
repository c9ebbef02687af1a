package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ErrInterrupted is the cancellation cause for a context canceled by a signal.
// A handler whose parent context ends with this cause reports an interrupt.
var ErrInterrupted = errors.New("interrupted by signal")

// InterruptHandler cancels a long-running batch on SIGINT or SIGTERM and
// tells the user how far it got.
type InterruptHandler struct {
	writer      io.Writer
	ctx         context.Context
	cancelFunc  context.CancelFunc
	total       int
	done        int
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer: writer,
	}
}

// HandleInterrupts sets up signal handling and returns a context that will be
// canceled on interrupt. total is the number of rules in the batch.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, total int) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.ctx = ctx
	h.cancelFunc = cancel
	h.total = total
	h.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			h.interrupt()
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), ErrInterrupted) {
				h.interrupt()
			}
		}
		signal.Stop(sigChan)
	}()

	return ctx
}

// RuleDone records one finished rule.
func (h *InterruptHandler) RuleDone() {
	h.mu.Lock()
	h.done++
	h.mu.Unlock()
}

func (h *InterruptHandler) interrupt() {
	h.mu.Lock()
	h.markInterrupted()
	cancel := h.cancelFunc
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// markInterrupted must be called with h.mu held.
func (h *InterruptHandler) markInterrupted() {
	if !h.interrupted {
		h.interrupted = true
		h.showInterruptMessage()
	}
}

// showInterruptMessage must be called with h.mu held.
func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning("Verification interrupted!")
	if h.total > 0 {
		msg += "\n" + FormatInfo(fmt.Sprintf("%d of %d rules finished, no results were written.", h.done, h.total))
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted, either by a
// signal this handler caught or by a parent context canceled with
// ErrInterrupted. The check does not wait for the signal goroutine.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.interrupted && h.ctx != nil && errors.Is(context.Cause(h.ctx), ErrInterrupted) {
		h.markInterrupted()
	}
	return h.interrupted
}
