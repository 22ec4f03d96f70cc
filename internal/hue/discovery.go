package hue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ErrNoBridge is returned when discovery finds no (matching) bridge.
var ErrNoBridge = errors.New("no hue bridge found")

const hueService = "_hue._tcp"

// Bridge is a Hue bridge that answered an mDNS query.
type Bridge struct {
	Host  string
	ID    string
	Model string
	Name  string
}

func bridgeFromEntry(entry *mdns.ServiceEntry) Bridge {
	b := Bridge{Name: entry.Name}
	if entry.AddrV4 != nil {
		b.Host = entry.AddrV4.String()
	}
	for _, txt := range entry.InfoFields {
		switch {
		case strings.HasPrefix(txt, "bridgeid="):
			b.ID = strings.TrimPrefix(txt, "bridgeid=")
		case strings.HasPrefix(txt, "modelid="):
			b.Model = strings.TrimPrefix(txt, "modelid=")
		}
	}
	if b.Name == "" && entry.Host != "" {
		b.Name = strings.TrimSuffix(entry.Host, ".")
	}
	return b
}

// DiscoverBridges browses the local network for Hue bridges for up to timeout.
func DiscoverBridges(timeout time.Duration) ([]Bridge, error) {
	var (
		mu      sync.Mutex
		bridges []Bridge
		wg      sync.WaitGroup
	)

	entries := make(chan *mdns.ServiceEntry, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			b := bridgeFromEntry(entry)
			if b.Host == "" {
				continue
			}
			mu.Lock()
			bridges = append(bridges, b)
			mu.Unlock()
		}
	}()

	params := mdns.DefaultParams(hueService)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entries)
	wg.Wait()

	if err != nil {
		return bridges, fmt.Errorf("mDNS query failed: %w", err)
	}
	return bridges, nil
}

// SelectBridge picks the bridge with the given id, or the first one when id is empty.
// IDs compare case-insensitively.
func SelectBridge(bridges []Bridge, id string) (Bridge, error) {
	for _, b := range bridges {
		if id == "" || strings.EqualFold(b.ID, id) {
			return b, nil
		}
	}
	if id != "" {
		return Bridge{}, fmt.Errorf("%w: id %s", ErrNoBridge, id)
	}
	return Bridge{}, ErrNoBridge
}

// DiscoverBridge resolves the address of one bridge, giving up when ctx is done.
func DiscoverBridge(ctx context.Context, id string, timeout time.Duration) (string, error) {
	type result struct {
		bridges []Bridge
		err     error
	}
	done := make(chan result, 1)
	go func() {
		bridges, err := DiscoverBridges(timeout)
		done <- result{bridges, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil && len(r.bridges) == 0 {
			return "", r.err
		}
		b, err := SelectBridge(r.bridges, id)
		if err != nil {
			return "", err
		}
		log.Info().Str("host", b.Host).Str("bridge_id", b.ID).Str("model", b.Model).Msg("Discovered Hue bridge")
		return b.Host, nil
	}
}
