package activity

import "time"

// pointerNoiseThreshold is the smallest movement in pixels that counts as
// activity. Smaller deltas are sensor noise.
const pointerNoiseThreshold = 2.0

// PointerMonitor polls the cursor and reports movement to the supervisor.
// All methods run with the supervisor lock held.
type PointerMonitor struct {
	sup    *Supervisor
	cursor CursorLocator

	ticker  *time.Ticker
	last    Point
	hasLast bool
	failing bool
}

func newPointerMonitor(sup *Supervisor, cursor CursorLocator) *PointerMonitor {
	return &PointerMonitor{sup: sup, cursor: cursor}
}

func (p *PointerMonitor) enabled() bool {
	return p.cursor != nil
}

func (p *PointerMonitor) polling() bool {
	return p.ticker != nil
}

// startPolling installs the poll interval. It is a no-op when already
// polling, when suspended, or when no cursor source is configured.
func (p *PointerMonitor) startPolling() {
	if p.ticker != nil || p.sup.state.suspended || !p.enabled() {
		return
	}
	p.ticker = time.NewTicker(pointerPollInterval)
	p.sup.wake()
}

func (p *PointerMonitor) stopPolling() {
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	p.ticker = nil
	p.sup.wake()
}

func (p *PointerMonitor) tickC() <-chan time.Time {
	if p.ticker == nil {
		return nil
	}
	return p.ticker.C
}

// tick samples the cursor once.
func (p *PointerMonitor) tick() {
	if p.ticker == nil || !p.sup.state.tracking || p.sup.state.suspended {
		return
	}

	pos, err := p.cursor.Position()
	if err != nil {
		// Locked sessions routinely fail here; only the first failure of a
		// streak is worth a warning.
		if !p.sup.state.suspended && !p.failing {
			p.sup.logger.Warn("Failed to read cursor position", "error", err)
		}
		p.failing = true
		return
	}
	p.failing = false

	if !p.hasLast {
		p.last = pos
		p.hasLast = true
		p.sup.state.pointerPosition = pos
		return
	}

	if p.last.DistanceTo(pos) < pointerNoiseThreshold {
		return
	}

	p.last = pos
	p.sup.state.pointerPosition = pos
	p.sup.recordActivityLocked(SourcePointer)
}
