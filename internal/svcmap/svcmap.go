// Package svcmap maps well-known TCP ports to service names for scan output.
package svcmap

// Unknown is the service label for every port outside the well-known map.
const Unknown = "unknown"

// wellKnown is the fixed report vocabulary. Deliberately small: report
// consumers match on exactly these labels, so additions change the format.
var wellKnown = map[int]string{
	22:  "SSH",
	80:  "HTTP",
	443: "HTTPS",
}

// Name returns the service name for a port, or Unknown.
func Name(port int) string {
	if name, ok := wellKnown[port]; ok {
		return name
	}
	return Unknown
}
