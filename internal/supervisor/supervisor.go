// Package supervisor is the dynamic one-for-one supervisor of device
// Agents: it turns SSDP sightings and static seeds into running Agents,
// reclaims their Registry/PubSub entries on termination, and periodically
// re-triggers SSDP discovery so devices that missed a NOTIFY are still
// found.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jmartin-dev/musiccast-hub-go/internal/agent"
	"github.com/jmartin-dev/musiccast-hub-go/internal/ingress"
	"github.com/jmartin-dev/musiccast-hub-go/internal/registry"
	"github.com/jmartin-dev/musiccast-hub-go/internal/ssdp"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/description"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/gena"
	"github.com/jmartin-dev/musiccast-hub-go/internal/upnp/soap"
	"github.com/jmartin-dev/musiccast-hub-go/internal/yxc"
)

// Config carries the timing knobs the supervisor needs to build Agents.
type Config struct {
	CallbackURLBase            string
	UpnpSubscriptionTimeoutSec int
	YXCPollIntervalSec         int
	YXCRenewalBufferSec        int
	GenaRenewalBufferSec       int
	InitTimeout                time.Duration
	RescanCron                 string
}

// Supervisor owns the fleet of live Agents. It is the only component that
// mutates the ingress Directory.
type Supervisor struct {
	yxc      *yxc.Client
	soap     *soap.Client
	gena     *gena.Client
	registry *registry.Registry
	bus      *registry.Bus
	dir      *ingress.Directory
	ssdp     *ssdp.Listener
	cfg      Config

	mu    sync.Mutex
	byIP  map[string]context.CancelFunc
	byUSN map[string]string // usn -> ip, populated from SSDP sightings for byebye teardown
	cron  *cron.Cron
}

// New builds a Supervisor. AttachSSDP wires an ssdp.Listener's
// OnDiscovered and OnByebye to AddDevice and RemoveByUSN respectively.
func New(yxcClient *yxc.Client, soapClient *soap.Client, genaClient *gena.Client, reg *registry.Registry, bus *registry.Bus, dir *ingress.Directory, cfg Config) *Supervisor {
	return &Supervisor{
		yxc:      yxcClient,
		soap:     soapClient,
		gena:     genaClient,
		registry: reg,
		bus:      bus,
		dir:      dir,
		cfg:      cfg,
		byIP:     make(map[string]context.CancelFunc),
		byUSN:    make(map[string]string),
	}
}

// AttachSSDP wires an SSDP listener's callbacks to this supervisor. Kept
// separate from New because the listener needs the supervisor's
// registry-backed liveness check to construct itself, and the supervisor
// doesn't need the listener until it starts handling discoveries.
func (s *Supervisor) AttachSSDP(l *ssdp.Listener) {
	s.ssdp = l
	l.OnDiscovered = func(location, usn, fromIP string) {
		s.AddDevice(context.Background(), fromIP, location, usn)
	}
	l.OnByebye = func(usn string) {
		s.RemoveByUSN(usn)
	}
}

// AddDevice fetches the device's UPnP root description and spawns an
// Agent for it. Failures are logged, not returned, since discovery is a
// best-effort fire-and-forget path. usn is the SSDP announcement's USN
// header, used to resolve a later ssdp:byebye back to this ip; pass "" for
// devices added by static seed or the manual add-device API, which have no
// USN and are only reclaimed by agent-death or rescan.
func (s *Supervisor) AddDevice(ctx context.Context, ip, location, usn string) {
	s.mu.Lock()
	if _, live := s.byIP[ip]; live {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	initCtx, cancelInit := context.WithTimeout(ctx, s.initTimeout())
	defer cancelInit()

	loc, err := url.Parse(location)
	if err != nil {
		log.Printf("supervisor: bad location for %s: %v", ip, err)
		return
	}

	root, err := description.Fetch(initCtx, location)
	if err != nil {
		log.Printf("supervisor: fetch description for %s: %v", ip, err)
		return
	}

	deps := agent.Deps{
		YXC:                        s.yxc,
		SOAP:                       s.soap,
		GENA:                       s.gena,
		Registry:                   s.registry,
		Bus:                        s.bus,
		CallbackURLBase:            s.cfg.CallbackURLBase,
		UpnpSubscriptionTimeoutSec: s.cfg.UpnpSubscriptionTimeoutSec,
		YXCPollIntervalSec:         s.cfg.YXCPollIntervalSec,
		YXCRenewalBufferSec:        s.cfg.YXCRenewalBufferSec,
		GenaRenewalBufferSec:       s.cfg.GenaRenewalBufferSec,
	}

	ag := agent.New(uuid.NewString(), ip, loc, root, deps)
	if err := ag.Init(initCtx); err != nil {
		log.Printf("supervisor: init agent for %s: %v", ip, err)
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.byIP[ip] = cancel
	if usn != "" {
		s.byUSN[usn] = ip
	}
	s.mu.Unlock()

	s.dir.Put(ag.DeviceID(), ag)

	go func() {
		ag.Run(runCtx)
		s.mu.Lock()
		delete(s.byIP, ip)
		if usn != "" && s.byUSN[usn] == ip {
			delete(s.byUSN, usn)
		}
		s.mu.Unlock()
		s.dir.Remove(ag.DeviceID(), ag)
	}()
}

// RemoveDevice cancels the Agent for ip, if one is running. Agent.Run's
// deferred terminate() reclaims its Registry and PubSub entries.
func (s *Supervisor) RemoveDevice(ip string) {
	s.mu.Lock()
	cancel, ok := s.byIP[ip]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// RemoveByUSN cancels the Agent last discovered under usn, in response to
// an ssdp:byebye. A usn with no recorded sighting (static seed, manual add,
// or a process restart that lost the index) is silently ignored.
func (s *Supervisor) RemoveByUSN(usn string) {
	s.mu.Lock()
	ip, ok := s.byUSN[usn]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.RemoveDevice(ip)
}

// SeedStatic spawns Agents for a fixed list of device IPs whose SSDP
// location is assumed to be the standard MusicCast description path,
// for networks where multicast discovery is unreliable.
func (s *Supervisor) SeedStatic(ctx context.Context, ips []string) {
	for _, ip := range ips {
		location := fmt.Sprintf("http://%s:49154/MediaRenderer/desc.xml", ip)
		s.AddDevice(ctx, ip, location, "")
	}
}

// StartRescan schedules periodic SSDP re-discovery on the configured cron
// expression, so devices that missed their NOTIFY are eventually found.
func (s *Supervisor) StartRescan() error {
	if s.ssdp == nil || s.cfg.RescanCron == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.RescanCron, func() {
		if err := s.ssdp.Search(); err != nil {
			log.Printf("supervisor: rescan search: %v", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop stops the rescan cron and every live Agent, waiting for none of
// them in particular — each Agent's own Stop must be used for a graceful
// per-device drain; this is used only at process shutdown.
func (s *Supervisor) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.byIP {
		cancel()
	}
}

func (s *Supervisor) initTimeout() time.Duration {
	if s.cfg.InitTimeout > 0 {
		return s.cfg.InitTimeout
	}
	return 10 * time.Second
}
