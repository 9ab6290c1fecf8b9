// Package report owns both scan output sinks: the live console stream of
// discoveries and the persisted report file.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/HerbHall/portscout/internal/svcmap"
	"github.com/HerbHall/portscout/internal/target"
	"github.com/HerbHall/portscout/internal/version"
	"go.uber.org/zap"
)

// portLineFormat is shared by the live stream and the report file, so a
// console line and its file counterpart are byte-identical.
const portLineFormat = "%d  open  %s\n"

// Render writes the report for tgt to w. Ports are listed ascending
// regardless of arrival order. A header write error aborts; a failed port
// line is logged and skipped so one bad write does not lose the rest of
// the report.
func Render(w io.Writer, tgt *target.Target, openPorts []int, logger *zap.Logger) error {
	ports := make([]int, len(openPorts))
	copy(ports, openPorts)
	sort.Ints(ports)

	header := fmt.Sprintf("PortScout %s\nScan Report for %s\n\nPORT  STATE  SERVICE\n\n",
		version.Short(), tgt.Display())
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for _, port := range ports {
		if _, err := fmt.Fprintf(w, portLineFormat, port, svcmap.Name(port)); err != nil {
			logger.Error("failed to write report line",
				zap.Int("port", port),
				zap.Error(err),
			)
		}
	}
	return nil
}

// WriteFile renders the report to path, truncating any existing file.
// Create and close failures are returned; the caller decides whether they
// are fatal.
func WriteFile(path string, tgt *target.Target, openPorts []int, logger *zap.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file %s: %w", path, err)
	}
	if err := Render(f, tgt, openPorts, logger); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file %s: %w", path, err)
	}
	return nil
}
