package report

import (
	"context"
	"fmt"
	"io"

	"github.com/HerbHall/portscout/internal/event"
	"github.com/HerbHall/portscout/internal/scan"
	"go.uber.org/zap"
)

// Console streams one line per discovered port to w, in the order ports
// are found. Delivery rides the synchronous event bus, so lines appear as
// the sweep progresses rather than after it.
type Console struct {
	w      io.Writer
	logger *zap.Logger
}

// NewConsole creates a console sink writing to w.
func NewConsole(w io.Writer, logger *zap.Logger) *Console {
	return &Console{w: w, logger: logger}
}

// Subscribe attaches the console to the port-open stream on bus. The
// returned function detaches it.
func (c *Console) Subscribe(bus *event.Bus) func() {
	return bus.Subscribe(scan.TopicPortOpen, c.handlePortOpen)
}

func (c *Console) handlePortOpen(_ context.Context, e event.Event) {
	ev, ok := e.Payload.(scan.PortOpenEvent)
	if !ok {
		return
	}
	if _, err := fmt.Fprintf(c.w, portLineFormat, ev.Port, ev.Service); err != nil {
		c.logger.Warn("failed to write discovery line",
			zap.Int("port", ev.Port),
			zap.Error(err),
		)
	}
}
