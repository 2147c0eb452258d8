// Package traceparser reads Go execution traces captured while a demo
// runs and reduces them to per-goroutine scheduling profiles. It is the
// bridge to the real runtime profiler: the fiber runtime's own recorder
// sees fibers, this sees the goroutines underneath them.
package traceparser

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/trace"
)

// BlockReason classifies why a goroutine stopped running.
type BlockReason int

const (
	BlockOther BlockReason = iota
	BlockSleep
	BlockChannel
	BlockLock
	BlockSyscall
	BlockNetwork
	BlockSelect
)

func (r BlockReason) String() string {
	switch r {
	case BlockSleep:
		return "sleep"
	case BlockChannel:
		return "channel"
	case BlockLock:
		return "lock"
	case BlockSyscall:
		return "syscall"
	case BlockNetwork:
		return "network"
	case BlockSelect:
		return "select"
	default:
		return "other"
	}
}

// GoroutineProfile accumulates one goroutine's scheduling behavior.
type GoroutineProfile struct {
	ID          uint64
	Running     time.Duration
	Runnable    time.Duration
	Blocked     time.Duration
	Transitions int
	ByReason    map[BlockReason]time.Duration

	lastState  trace.GoState
	lastChange time.Duration
	lastReason BlockReason
}

// Profile is the reduced view of one execution trace.
type Profile struct {
	Goroutines   map[uint64]*GoroutineProfile
	TotalRunning time.Duration
	TotalBlocked time.Duration
	ByReason     map[BlockReason]time.Duration
}

// TopBlocked returns up to n goroutines ordered by blocked time.
func (p *Profile) TopBlocked(n int) []*GoroutineProfile {
	items := make([]*GoroutineProfile, 0, len(p.Goroutines))
	for _, g := range p.Goroutines {
		if g.Blocked > 0 {
			items = append(items, g)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Blocked != items[j].Blocked {
			return items[i].Blocked > items[j].Blocked
		}
		return items[i].ID < items[j].ID
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// Parse reads an execution trace and builds the profile in one pass,
// event order preserved.
func Parse(r io.Reader) (*Profile, error) {
	reader, err := trace.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	p := &Profile{
		Goroutines: make(map[uint64]*GoroutineProfile),
		ByReason:   make(map[BlockReason]time.Duration),
	}

	for {
		ev, err := reader.ReadEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		if ev.Kind() != trace.EventStateTransition {
			continue
		}
		st := ev.StateTransition()
		if st.Resource.Kind != trace.ResourceGoroutine {
			continue
		}
		p.apply(uint64(st.Resource.Goroutine()), st, time.Duration(ev.Time()))
	}

	for _, g := range p.Goroutines {
		p.TotalRunning += g.Running
		p.TotalBlocked += g.Blocked
		for reason, d := range g.ByReason {
			p.ByReason[reason] += d
		}
	}

	return p, nil
}

func (p *Profile) apply(gid uint64, st trace.StateTransition, ts time.Duration) {
	g, ok := p.Goroutines[gid]
	if !ok {
		g = &GoroutineProfile{
			ID:         gid,
			ByReason:   make(map[BlockReason]time.Duration),
			lastChange: ts,
		}
		p.Goroutines[gid] = g
	}

	held := ts - g.lastChange
	switch g.lastState {
	case trace.GoRunning:
		g.Running += held
	case trace.GoRunnable:
		g.Runnable += held
	case trace.GoWaiting, trace.GoSyscall:
		g.Blocked += held
		g.ByReason[g.lastReason] += held
	}

	_, to := st.Goroutine()
	g.lastState = to
	g.lastChange = ts
	g.Transitions++
	if to == trace.GoWaiting || to == trace.GoSyscall {
		g.lastReason = classifyReason(st.Reason)
	}
}

// classifyReason maps the trace's free-form transition reason onto the
// small set the reports care about.
func classifyReason(reason string) BlockReason {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "sleep") || strings.Contains(r, "timer"):
		return BlockSleep
	case strings.Contains(r, "chan"):
		return BlockChannel
	case strings.Contains(r, "mutex") || strings.Contains(r, "lock") || strings.Contains(r, "semacquire") || strings.Contains(r, "sync"):
		return BlockLock
	case strings.Contains(r, "syscall"):
		return BlockSyscall
	case strings.Contains(r, "network") || strings.Contains(r, "poll"):
		return BlockNetwork
	case strings.Contains(r, "select"):
		return BlockSelect
	default:
		return BlockOther
	}
}
