package melod

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"net"
	"os"
	"strings"
)

// Serial derives a stable device identifier from the first non-loopback
// hardware address, falling back to a hash of the host name when no usable
// interface exists.
func Serial() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			if len(iface.HardwareAddr) == 0 {
				continue
			}
			return strings.ToLower(hex.EncodeToString(iface.HardwareAddr))
		}
	}

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "melo"
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(host))
	return fmt.Sprintf("%016x", h.Sum64())
}
