// Package discovery advertises the canvas server on the local network so
// clients can find it without a typed address.
package discovery

import (
	"fmt"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_sharedcanvas._tcp"

// Advertiser wraps a running mDNS responder.
type Advertiser struct {
	server  *mdns.Server
	service *mdns.MDNSService
}

// Advertise announces the server on port under instance. An empty instance
// uses the hostname.
func Advertise(instance string, port int) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if instance == "" {
		instance = host
	}

	service, err := newService(instance, "", port, nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return &Advertiser{server: server, service: service}, nil
}

// newService builds the DNS records for the canvas. Empty host and nil ips
// let mdns resolve them from the OS.
func newService(instance, host string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	info := []string{"path=/ws", "protocol=sharedcanvas"}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", host, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	return service, nil
}

func (a *Advertiser) Instance() string {
	return a.service.Instance
}

func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}
