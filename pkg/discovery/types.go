package discovery

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ServiceType is the DNS-SD service type for endpoint-controller agents.
	ServiceType = "_lepair._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the default agent control port.
	DefaultPort = 7331

	// BrowseTimeout is the default bound on browse operations.
	BrowseTimeout = 10 * time.Second
)

// Agent roles advertised in the TXT record.
const (
	RoleRef = "ref"
	RoleDut = "dut"
)

// AgentInfo describes one endpoint-controller agent.
type AgentInfo struct {
	// Instance is the mDNS instance name.
	Instance string

	// Role is the endpoint role the agent exposes (RoleRef or RoleDut).
	Role string

	// Transports lists supported transports ("le", "classic").
	Transports []string

	// Host is the agent's mDNS host name.
	Host string

	// Port is the agent control port.
	Port int

	// Addresses are the agent's resolved IP addresses as strings.
	Addresses []string
}

// EncodeTXT renders the agent metadata as TXT record strings.
func EncodeTXT(info AgentInfo) []string {
	txt := []string{
		"role=" + info.Role,
		"tp=" + strings.Join(info.Transports, ","),
	}
	return txt
}

// DecodeTXT parses TXT record strings into agent metadata. Unknown keys are
// ignored for forward compatibility.
func DecodeTXT(txt []string) (role string, transports []string, err error) {
	for _, entry := range txt {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		switch key {
		case "role":
			role = value
		case "tp":
			if value != "" {
				transports = strings.Split(value, ",")
			}
		}
	}
	if role != RoleRef && role != RoleDut {
		return "", nil, fmt.Errorf("discovery: missing or unknown role in TXT record")
	}
	return role, transports, nil
}
