// Package fetcher keeps a local copy of the trade snapshot and the reference
// name tables, refreshing the snapshot on a fixed interval.
package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"trade-viewer/internal/logger"
	"trade-viewer/internal/models"
	"trade-viewer/internal/refdata"
)

// ErrNotReady is returned by consumers while the snapshot or the commodity
// names are still missing.
var ErrNotReady = errors.New("trade data not loaded yet")

var errAlreadyStarted = errors.New("poller already started")

type Source interface {
	Trade(ctx context.Context) (*models.TradeSnapshot, error)
	CommodityNames(ctx context.Context) (refdata.Names, error)
	StationNames(ctx context.Context) (refdata.Names, error)
}

// Poller fetches the reference tables once and the trade snapshot every
// interval. Each trade fetch runs in its own cycle; starting a cycle cancels
// the previous one and a response older than the last applied cycle is
// dropped, so state only ever moves forward.
type Poller struct {
	src      Source
	interval time.Duration
	log      *logger.Entry

	mu           sync.Mutex
	snapshot     *models.TradeSnapshot
	names        refdata.Names
	stationNames refdata.Names
	cycle        uint64
	applied      uint64
	cancelCycle  context.CancelFunc
	listeners    []func()

	root    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewPoller(src Source, interval time.Duration, log *logger.Log) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		src:      src,
		interval: interval,
		log:      log.WithComponent("fetcher"),
	}
}

// OnUpdate registers fn to run after every state change.
func (p *Poller) OnUpdate(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start issues the three fetches concurrently and begins the refresh timer.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errAlreadyStarted
	}
	p.root, p.stop = context.WithCancel(ctx)
	p.running = true
	p.mu.Unlock()

	p.loadNames()
	p.Refresh()

	p.wg.Add(1)
	go p.loop()
	return nil
}

// Stop clears the timer, cancels in-flight fetches and waits for them.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stop()
	p.mu.Unlock()
	p.wg.Wait()
}

// State returns the latest data. ready is true once both the snapshot and a
// non-empty commodity name table are present.
func (p *Poller) State() (snapshot *models.TradeSnapshot, names, stationNames refdata.Names, ready bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ready = p.snapshot != nil && p.names.Len() > 0
	return p.snapshot, p.names, p.stationNames, ready
}

// Refresh starts a new trade fetch cycle immediately.
func (p *Poller) Refresh() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	if p.cancelCycle != nil {
		p.cancelCycle()
	}
	p.cycle++
	n := p.cycle
	ctx, cancel := context.WithCancel(p.root)
	p.cancelCycle = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		p.fetchTrade(ctx, n)
	}()
}

func (p *Poller) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.root.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			missing := p.names.Len() == 0 || p.stationNames.Len() == 0
			p.mu.Unlock()
			if missing {
				p.loadNames()
			}
			p.Refresh()
		}
	}
}

func (p *Poller) fetchTrade(ctx context.Context, n uint64) {
	snap, err := p.src.Trade(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.WithError(err).WithFields(logger.Fields{"cycle": n}).Warn("trade fetch failed")
		}
		return
	}

	p.mu.Lock()
	if ctx.Err() != nil || n <= p.applied {
		p.mu.Unlock()
		p.log.WithFields(logger.Fields{"cycle": n}).Debug("discarding stale trade response")
		return
	}
	p.applied = n
	p.snapshot = snap
	p.mu.Unlock()

	p.log.WithFields(logger.Fields{
		"cycle":    n,
		"stations": len(snap.Stations),
	}).Debug("trade snapshot applied")
	p.notify()
}

func (p *Poller) loadNames() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	ctx := p.root
	needCommodities := p.names.Len() == 0
	needStations := p.stationNames.Len() == 0
	if needCommodities {
		p.wg.Add(1)
	}
	if needStations {
		p.wg.Add(1)
	}
	p.mu.Unlock()

	if needCommodities {
		go func() {
			defer p.wg.Done()
			names, err := p.src.CommodityNames(ctx)
			if err != nil {
				p.logNamesError(ctx, err, refdata.CommodityFile)
				return
			}
			p.mu.Lock()
			p.names = names
			p.mu.Unlock()
			p.notify()
		}()
	}
	if needStations {
		go func() {
			defer p.wg.Done()
			names, err := p.src.StationNames(ctx)
			if err != nil {
				p.logNamesError(ctx, err, refdata.StationFile)
				return
			}
			p.mu.Lock()
			p.stationNames = names
			p.mu.Unlock()
			p.notify()
		}()
	}
}

func (p *Poller) logNamesError(ctx context.Context, err error, file string) {
	if ctx.Err() != nil {
		return
	}
	p.log.WithError(err).WithFields(logger.Fields{"table": file}).Warn("reference fetch failed")
}

func (p *Poller) notify() {
	p.mu.Lock()
	listeners := append([]func(){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
