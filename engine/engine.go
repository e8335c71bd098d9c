// File: engine/engine.go
// Author: momentics <momentics@gmail.com>
//
// Unified facade over the paging engine, grounded on facade/hioload.go:
// one struct aggregates the page table, replacement policy, peer
// transport, fault engine, thread coordinator, and heartbeat reporter
// behind a small surface a command-line front end can drive without
// knowing how any one collaborator is wired.

package engine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/momentics/jumbomem/api"
	"github.com/momentics/jumbomem/internal/allocator"
	"github.com/momentics/jumbomem/internal/config"
	"github.com/momentics/jumbomem/internal/fault"
	"github.com/momentics/jumbomem/internal/pagereplace"
	"github.com/momentics/jumbomem/internal/pagetable"
	"github.com/momentics/jumbomem/internal/peertransport/mpi"
	"github.com/momentics/jumbomem/internal/peertransport/shmem"
	"github.com/momentics/jumbomem/internal/sysinfo"
	"github.com/momentics/jumbomem/internal/threadstate"
)

// Variant selects which peer wire protocol the master negotiates with,
// spec.md's two peer transport variants.
type Variant int

const (
	VariantMPI Variant = iota
	VariantSHMEM
)

// Config holds the parameters a master run needs beyond what
// internal/config.Store would supply from the environment — kept
// explicit here, the way facade.Config keeps its knobs explicit,
// rather than threading a raw Store through every constructor.
type Config struct {
	Base       api.Addr
	Extent     uint64
	PageSize   int
	LocalPages int
	AsyncEvict bool
	Memcpy     bool

	Policy       string // "fifo", "random", "nre", "nru"
	NREEntries   int
	NRERetries   int
	NRUInterval  int
	NRURW        bool
	Distribution api.Distribution
	Prefetch     api.PrefetchMode

	Variant     Variant
	PeerAddrs   []string
	WantPerPeer uint64

	// ReduceMem mirrors REDUCEMEM: whether the master's own sizing
	// should be trimmed by observed major faults the way each peer's
	// buffer is (internal/sysinfo.ReduceForFaults), not just RESERVEMEM's
	// static skim.
	ReduceMem bool
	// Mlock mirrors MLOCK: request the master's region arena be pinned
	// (peers honor this independently: cmd/peer reads MLOCK from its own
	// environment, since each peer process owns and allocates its own
	// buffer).
	Mlock bool

	Heartbeat time.Duration
}

// FromStore builds a Config by reading internal/config.Store the way
// cmd/master's entry point would, applying spec.md §6's defaults for
// any key left unset. BASEADDR accepts an absolute address or a
// signed-relative delta (config.SignedDelta); LOCAL_PAGES accepts a
// plain count or a "<n>%" fraction of the RAM-probed maximum local_pages
// cap (internal/sysinfo, spec.md §4.1's "local_pages = min(master_free /
// P, 2·max_mappings − 1)"); RESERVEMEM feeds that same probe.
func FromStore(s *config.Store, peerAddrs []string) Config {
	cfg := Config{
		Base:        resolveBase(s),
		PageSize:    s.Int(config.PageSize, 4096),
		AsyncEvict:  s.Bool(config.AsyncEvict, false),
		Memcpy:      s.Bool(config.Memcpy, true),
		Policy:      s.String("POLICY", "fifo"),
		NREEntries:  s.Int(config.NREEntries, 16),
		NRERetries:  s.Int(config.NRERetries, 32),
		NRUInterval: s.Int(config.NRUInterval, 100),
		NRURW:       s.Bool(config.NRURW, false),
		Prefetch:    parsePrefetchMode(s.String(config.Prefetch, "none")),
		PeerAddrs:   peerAddrs,
		WantPerPeer: s.Uint64(config.SlaveMem, 0),
		ReduceMem:   s.Bool(config.ReduceMem, false),
		Mlock:       s.Bool(config.Mlock, false),
		Heartbeat:   time.Duration(s.Int(config.Heartbeat, 10)) * time.Second,
	}

	maxLocalPages := probeMaxLocalPages(s, cfg.PageSize, len(peerAddrs))
	if frac, ok := s.Percent(config.LocalPages); ok {
		cfg.LocalPages = int(frac * float64(maxLocalPages))
	} else {
		cfg.LocalPages = int(s.Uint64(config.LocalPages, maxLocalPages))
	}
	cfg.Extent = uint64(cfg.LocalPages) * uint64(cfg.PageSize)

	if cfg.ReduceMem {
		if reduced, err := sysinfo.ReduceForFaults(cfg.Extent, cfg.PageSize); err == nil && reduced < cfg.Extent {
			cfg.Extent = reduced
			cfg.LocalPages = int(reduced / uint64(cfg.PageSize))
		}
	}

	if s.String("DISTRIBUTION", "roundrobin") == "block" {
		cfg.Distribution = api.DistBlock
	}
	return cfg
}

// resolveBase parses BASEADDR as an absolute address or a signed delta.
// This implementation has no real process data segment to anchor a
// relative delta against (unlike jumbomem.h's preferred-start-of-brk
// design — region slots are allocated individually, not as one mmap'd
// extent at Base), so a relative delta is applied against an address-0
// anchor; a negative relative delta therefore clamps to 0 rather than
// underflowing api.Addr's unsigned range.
func resolveBase(s *config.Store) api.Addr {
	raw := s.String(config.BaseAddr, "")
	if raw == "" {
		return 0
	}
	delta, absolute, ok := config.SignedDelta(raw)
	if !ok {
		return 0
	}
	if !absolute && delta < 0 {
		return 0
	}
	return api.Addr(delta)
}

// probeMaxLocalPages computes §4.1's local_pages cap: available RAM
// (reduced by RESERVEMEM) divided by page size, bounded by twice the
// kernel's max mapping count minus one. It falls back to the prior
// peer-count heuristic wherever the platform offers no /proc probe.
func probeMaxLocalPages(s *config.Store, pageSize, numPeers int) uint64 {
	fallback := uint64(numPeers * 1024)
	if fallback == 0 {
		fallback = 1024
	}

	absReserve, pctReserve := s.ReserveSplit(config.ReserveMem)
	available, err := sysinfo.AvailableMemory(absReserve, pctReserve)
	if err != nil {
		return fallback
	}
	maxMap, err := sysinfo.MaxMapCount()
	if err != nil {
		return fallback
	}

	byRAM := available / uint64(pageSize)
	byMappings := 2*maxMap - 1
	capped := byRAM
	if byMappings < capped {
		capped = byMappings
	}
	if capped == 0 {
		return fallback
	}
	return capped
}

// parsePrefetchMode maps PREFETCH's three values (spec.md §6) onto
// api.PrefetchMode, defaulting to PrefetchNone for anything else.
func parsePrefetchMode(v string) api.PrefetchMode {
	switch v {
	case "next":
		return api.PrefetchNext
	case "delta":
		return api.PrefetchDelta
	default:
		return api.PrefetchNone
	}
}

// Engine is the master-side facade: the single object cmd/master builds
// and drives.
type Engine struct {
	cfg Config

	region      *fault.Engine
	table       *pagetable.Table
	policy      api.Policy
	transport   api.Transport
	coordinator *threadstate.Coordinator
	domain      *allocator.Domain
	metrics     *threadstate.MetricsRegistry
	heartbeat   *threadstate.HeartbeatReporter

	mu      sync.Mutex
	started bool
}

// New wires every collaborator from cfg, choosing the replacement
// policy and peer transport variant by name the way facade.New chooses
// a transport by cfg.UseDPDK.
func New(cfg Config) (*Engine, error) {
	table := pagetable.New(cfg.LocalPages)

	policy, err := buildPolicy(cfg)
	if err != nil {
		return nil, err
	}

	transport := buildTransport(cfg)

	coordinator := threadstate.New()

	faultCfg := fault.Config{
		Base:       cfg.Base,
		Extent:     cfg.Extent,
		PageSize:   cfg.PageSize,
		LocalPages: cfg.LocalPages,
		AsyncEvict: cfg.AsyncEvict,
		Memcpy:     cfg.Memcpy,
		Prefetch:   cfg.Prefetch,
		Mlock:      cfg.Mlock,
	}
	region, err := fault.New(faultCfg, table, policy, transport, coordinator)
	if err != nil {
		return nil, fmt.Errorf("engine: building fault handler: %w", err)
	}

	domain := allocator.NewDomain(cfg.Base, cfg.Extent, cfg.Extent/8)

	e := &Engine{
		cfg:         cfg,
		region:      region,
		table:       table,
		policy:      policy,
		transport:   transport,
		coordinator: coordinator,
		domain:      domain,
		metrics:     threadstate.NewMetricsRegistry(),
	}
	return e, nil
}

func buildPolicy(cfg Config) (api.Policy, error) {
	switch cfg.Policy {
	case "", "fifo":
		return pagereplace.NewFIFO(cfg.LocalPages), nil
	case "random":
		return pagereplace.NewRandom(cfg.LocalPages), nil
	case "nre":
		return pagereplace.NewNRE(cfg.LocalPages, cfg.NREEntries, cfg.NRERetries), nil
	case "nru":
		return pagereplace.NewNRU(cfg.LocalPages, cfg.NRUInterval, cfg.NRURW), nil
	default:
		return nil, fmt.Errorf("engine: unknown replacement policy %q", cfg.Policy)
	}
}

func buildTransport(cfg Config) api.Transport {
	switch cfg.Variant {
	case VariantSHMEM:
		return shmem.New(cfg.PeerAddrs, cfg.PageSize, cfg.WantPerPeer, cfg.Distribution, uint64(cfg.LocalPages))
	default:
		return mpi.New(cfg.PeerAddrs, cfg.PageSize, cfg.WantPerPeer, cfg.Distribution, uint64(cfg.LocalPages))
	}
}

// Start negotiates peer topology and, if cfg.Heartbeat is positive,
// begins periodic status logging — facade.Start's "pin affinity, flip
// on metrics" step adapted to this domain's two setup concerns.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	rank, numRanks, pageSize, perPeer, err := e.transport.Init()
	if err != nil {
		return fmt.Errorf("engine: negotiating peer transport: %w", err)
	}
	log.Printf("[engine] rank=%d numRanks=%d pageSize=%d perPeerBytes=%d policy=%s",
		rank, numRanks, pageSize, perPeer, e.policy.Name())

	if e.cfg.Heartbeat > 0 {
		e.heartbeat = threadstate.NewHeartbeatReporter(e.metrics, e.cfg.Heartbeat, func(snap map[string]any) {
			log.Printf("[heartbeat] %+v", snap)
		})
		e.heartbeat.Start()
	}
	e.started = true
	return nil
}

// Stop drains the heartbeat reporter, terminates peers, and releases
// the backing arena, mirroring facade.Stop's teardown order: stop
// periodic work first, then close resources that periodic work reads.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	if e.heartbeat != nil {
		e.heartbeat.Stop()
	}
	if err := e.transport.Finalize(); err != nil {
		log.Printf("[engine] error finalizing transport: %v", err)
	}
	if err := e.region.Close(); err != nil {
		log.Printf("[engine] error closing region: %v", err)
	}
	e.started = false
	return nil
}

// Access exposes the fault handler's sole entry point (api.Region.Access),
// updating the heartbeat's fault counter on every call.
func (e *Engine) Access(addr api.Addr, forWrite bool) ([]byte, error) {
	b, err := e.region.Access(addr, forWrite)
	e.metrics.Set("faults", e.region.Faults())
	e.metrics.Set("good_prefetches", e.region.GoodPrefetches())
	e.metrics.Set("pages_received", e.region.PagesReceived())
	return b, err
}

// Region exposes the underlying api.Region for callers that need the
// full interface (PageBytes, Protect) rather than just Access.
func (e *Engine) Region() api.Region { return e.region }

// Coordinator exposes the thread coordinator so callers can register
// their own threads before touching Access from a new goroutine.
func (e *Engine) Coordinator() *threadstate.Coordinator { return e.coordinator }

// Domain exposes the allocator split between externally and internally
// visible address ranges.
func (e *Engine) Domain() *allocator.Domain { return e.domain }

// Metrics returns a snapshot of the engine's live counters.
func (e *Engine) Metrics() map[string]any { return e.metrics.GetSnapshot() }
