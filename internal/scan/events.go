package scan

// Event topics published by the scanner.
const (
	TopicScanStarted   = "scan.started"
	TopicPortOpen      = "scan.port_open"
	TopicScanCompleted = "scan.completed"
)

// ScanStartedEvent is the payload for TopicScanStarted events.
type ScanStartedEvent struct {
	Target string `json:"target"`
	Ports  int    `json:"ports"`
}

// PortOpenEvent is the payload for TopicPortOpen events, published once
// per discovered port as it is discovered.
type PortOpenEvent struct {
	Port    int    `json:"port"`
	Service string `json:"service"`
}
