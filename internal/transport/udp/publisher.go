package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "lumitone/internal/log"
)

// packetMagic identifies a carrier magnitude packet.
const packetMagic = uint32(0x4C4D544E) // "LMTN"

// Publisher periodically packs the latest carrier magnitude snapshot into
// a binary packet and sends it over UDP. It consumes magnitude maps off
// the decode path (storing only the most recent snapshot) and runs its own
// send loop, managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	carriers []int
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Latest snapshot, written by Consume, read by the send loop.
	snapMu   sync.Mutex
	snapshot []float64 // One magnitude per carrier, declared order.
	fresh    bool

	packetBuffer *bytes.Buffer // Reusable buffer for packet construction.
}

// NewPublisher creates a Publisher for the given carriers. If the interval
// is invalid (<= 0), it defaults to 50ms.
func NewPublisher(interval time.Duration, sender *Sender, carriers []int) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP publisher: sender cannot be nil")
	}
	if len(carriers) == 0 {
		return nil, fmt.Errorf("UDP publisher: at least one carrier is required")
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
		applog.Warnf("transport: invalid UDP interval, defaulting to %s", interval)
	}

	applog.Infof("transport: UDP publisher initializing (interval: %s, carriers: %d)",
		interval, len(carriers))

	return &Publisher{
		sender:       sender,
		carriers:     append([]int(nil), carriers...),
		interval:     interval,
		snapshot:     make([]float64, len(carriers)),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Consume stores the latest magnitude snapshot. The map is read once and
// not retained.
func (p *Publisher) Consume(mags map[int]float64) {
	p.snapMu.Lock()
	for i, f := range p.carriers {
		p.snapshot[i] = mags[f]
	}
	p.fresh = true
	p.snapMu.Unlock()
}

// Start launches the periodic send loop. Subsequent calls are no-ops while
// the publisher is running.
func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		applog.Warnf("transport: UDP publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.ticker.C:
				if err := p.buildAndSendPacket(); err != nil {
					applog.Debugf("transport: UDP send failed: %v", err)
				}
			case <-p.doneChan:
				return
			}
		}
	}()
}

// Stop halts the send loop and waits for it to exit. Safe to call more
// than once.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker == nil {
		return
	}
	p.stopOnce.Do(func() {
		p.ticker.Stop()
		close(p.doneChan)
	})
	p.wg.Wait()
	p.ticker = nil
	p.doneChan = nil
}

// buildAndSendPacket packs the latest snapshot into the wire format:
// magic uint32, sequence uint32, count uint16, then per carrier a
// frequency uint32 and magnitude float32, all big-endian. Nothing is sent
// until the first snapshot arrives.
func (p *Publisher) buildAndSendPacket() error {
	p.snapMu.Lock()
	if !p.fresh {
		p.snapMu.Unlock()
		return nil
	}
	p.packetBuffer.Reset()
	binary.Write(p.packetBuffer, binary.BigEndian, packetMagic)
	binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.carriers)))
	for i, f := range p.carriers {
		binary.Write(p.packetBuffer, binary.BigEndian, uint32(f))
		binary.Write(p.packetBuffer, binary.BigEndian, float32(p.snapshot[i]))
	}
	p.snapMu.Unlock()

	p.sequenceNum++
	return p.sender.Send(p.packetBuffer.Bytes())
}
