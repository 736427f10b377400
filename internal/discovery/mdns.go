// Package discovery announces the relay on the local network over mDNS and
// lets clients find it without a configured SERVER_URL.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type of the relay.
const ServiceType = "_mathsketch._tcp"

// DefaultBrowseTimeout bounds a Browse call when ctx has no deadline.
const DefaultBrowseTimeout = 3 * time.Second

// ErrNotFound is returned when no relay answered.
var ErrNotFound = errors.New("no relay found on the local network")

// Advertisement is a running mDNS responder.
type Advertisement struct {
	server *mdns.Server
}

// Advertise announces a relay listening on port. The TXT record carries
// the version so browsers can log what they found.
func Advertise(port int, version string) (*Advertisement, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"mathsketch relay", "version=" + version}
	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service, Logger: quietLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	log.Info().Str("service", ServiceType).Str("host", host).Int("port", port).Msg("advertising relay")
	return &Advertisement{server: server}, nil
}

// Shutdown stops answering queries.
func (a *Advertisement) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Browse returns the base URL of the first relay that answers before ctx
// is done or DefaultBrowseTimeout elapses.
func Browse(ctx context.Context) (string, error) {
	timeout := DefaultBrowseTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return "", ErrNotFound
	}

	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	go func() {
		for e := range entries {
			if u, ok := entryURL(e); ok {
				select {
				case found <- u:
				default:
				}
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	params.Logger = quietLogger()

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	select {
	case u := <-found:
		log.Info().Str("url", u).Msg("discovered relay")
		return u, nil
	case err := <-queryErr:
		if err != nil {
			return "", fmt.Errorf("mdns query: %w", err)
		}
		select {
		case u := <-found:
			return u, nil
		default:
			return "", ErrNotFound
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// entryURL turns a service entry into an http base URL.
func entryURL(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.Port == 0 {
		return "", false
	}
	var ip net.IP
	switch {
	case e.AddrV4 != nil:
		ip = e.AddrV4
	case e.AddrV6 != nil:
		ip = e.AddrV6
	default:
		return "", false
	}
	host := net.JoinHostPort(ip.String(), fmt.Sprint(e.Port))
	return "http://" + host, true
}

func quietLogger() *stdlog.Logger {
	return stdlog.New(io.Discard, "", 0)
}
