package discovery

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

const (
	// ServiceType is the DNS-SD service type registered for the bridge.
	ServiceType = "_adcbridge._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// Config describes what to advertise.
type Config struct {
	// Instance is the service instance name. Defaults to "adcbridge-<hostname>".
	Instance string

	// Port is the TCP port of the websocket server. Required.
	Port int

	// Path is the websocket path, published in the TXT record.
	Path string

	// Device is the serial device, published in the TXT record.
	Device string

	// TTL overrides the record TTL when positive.
	TTL time.Duration

	// Interface restricts advertising to one network interface. Empty means all.
	Interface string
}

// Advertiser registers one DNS-SD service and withdraws it on Shutdown.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser validates cfg and returns an [Advertiser]. Nothing is sent on
// the network until [Advertiser.Advertise] is called.
func NewAdvertiser(cfg Config) (*Advertiser, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Instance == "" {
		cfg.Instance = defaultInstance()
	}
	if len(cfg.Instance) > MaxInstanceNameLen {
		cfg.Instance = cfg.Instance[:MaxInstanceNameLen]
	}
	return &Advertiser{config: cfg}, nil
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "adcbridge"
	}
	return "adcbridge-" + host
}

// Instance returns the instance name that is (or will be) advertised.
func (a *Advertiser) Instance() string {
	return a.config.Instance
}

// TXT returns the TXT record strings for the service.
func (a *Advertiser) TXT() []string {
	txt := []string{"txtvers=1"}
	if a.config.Path != "" {
		txt = append(txt, "path="+a.config.Path)
	}
	if a.config.Device != "" {
		txt = append(txt, "device="+a.config.Device)
	}
	return txt
}

// Advertise starts answering mDNS queries for the service. Calling it again
// replaces the previous registration.
func (a *Advertiser) Advertise() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	ifaces, err := a.interfaces()
	if err != nil {
		return err
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		a.config.Instance,
		ServiceType,
		Domain,
		a.config.Port,
		a.TXT(),
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}

	a.server = server
	return nil
}

// interfaces returns the configured interface, or nil for all interfaces.
func (a *Advertiser) interfaces() ([]net.Interface, error) {
	if a.config.Interface == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil, fmt.Errorf("interface %q: %w", a.config.Interface, err)
	}
	if iface.Flags&net.FlagMulticast == 0 {
		return nil, fmt.Errorf("interface %q does not support multicast", a.config.Interface)
	}
	return []net.Interface{*iface}, nil
}

// Shutdown withdraws the service. Safe to call when not advertising.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
