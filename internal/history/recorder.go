package history

import (
	"context"

	"github.com/HerbHall/portscout/internal/event"
	"github.com/HerbHall/portscout/internal/scan"
	"go.uber.org/zap"
)

// Recorder persists completed sweeps from the event stream. Persistence
// failures are logged and never fail the scan that produced the result.
type Recorder struct {
	store  *Store
	logger *zap.Logger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Subscribe attaches the recorder to the completed-scan stream on bus.
// The returned function detaches it.
func (r *Recorder) Subscribe(bus *event.Bus) func() {
	return bus.Subscribe(scan.TopicScanCompleted, r.handleCompleted)
}

func (r *Recorder) handleCompleted(ctx context.Context, e event.Event) {
	res, ok := e.Payload.(*scan.Result)
	if !ok {
		return
	}

	id, err := r.store.SaveScan(ctx, res)
	if err != nil {
		r.logger.Warn("failed to record scan", zap.Error(err))
		return
	}
	r.logger.Debug("scan recorded",
		zap.String("id", id),
		zap.Int("open", len(res.OpenPorts)),
	)
}
