package capture

import (
	"errors"
	"sync"
)

var ErrMonitorActive = errors.New("level monitor already attached")

// levelWindow is the number of recent chunk magnitudes averaged into the
// reported level.
const levelWindow = 8

// Monitor samples instantaneous input amplitude from an active capture
// stream for visual feedback. It must be started only after the recorder
// has produced a live stream and stopped no later than stream release.
type Monitor struct {
	mu    sync.Mutex
	live  *Live
	tapID int
	ring  [levelWindow]float64
	count int
	next  int
}

func NewMonitor() *Monitor { return &Monitor{} }

// Start attaches to an already-active capture stream and begins
// continuous amplitude sampling.
func (m *Monitor) Start(live *Live) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live != nil {
		return ErrMonitorActive
	}
	m.live = live
	m.ring = [levelWindow]float64{}
	m.count = 0
	m.next = 0
	m.tapID = live.attach(m.sample)
	return nil
}

// Level returns normalized instantaneous loudness in [0,1], the mean
// chunk magnitude over the analysis window. Returns 0 when detached.
func (m *Monitor) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil || m.count == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < m.count; i++ {
		sum += m.ring[i]
	}
	level := sum / float64(m.count)
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// Stop detaches from the stream and releases analysis state.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil {
		return
	}
	m.live.detach(m.tapID)
	m.live = nil
	m.count = 0
	m.next = 0
}

func (m *Monitor) sample(chunk []byte) {
	mag := chunkMagnitude(chunk)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil {
		return
	}
	m.ring[m.next] = mag
	m.next = (m.next + 1) % levelWindow
	if m.count < levelWindow {
		m.count++
	}
}

// chunkMagnitude averages the absolute value of little-endian 16-bit PCM
// samples, normalized to [0,1].
func chunkMagnitude(chunk []byte) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		s := int16(uint16(chunk[2*i]) | uint16(chunk[2*i+1])<<8)
		v := float64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum / float64(n) / 32768.0
}
