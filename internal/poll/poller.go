package poll

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/charmbracelet/log"
	"github.com/puzpuzpuz/xsync/v3"
)

// Sample is the latest value of one variable on one channel
type Sample struct {
	Controller string    `json:"controller"`
	Variable   string    `json:"variable"`
	Channel    int       `json:"channel,omitempty"`
	Value      any       `json:"value,omitempty"`
	Err        string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Key identifies the sample within its controller
func (s Sample) Key() string {
	return fmt.Sprintf("%s/%d", s.Variable, s.Channel)
}

// Options configures a Poller
type Options struct {
	Interval    time.Duration
	MinPriority int
	// Channels to read per-channel variables on. Empty means all six.
	Channels []int
	Logger   *log.Logger
	// Observe is called with every sample taken.
	Observe func(Sample)
}

// Poller samples a controller's variable table
type Poller struct {
	name     string
	dev      Device
	vars     []Variable
	channels []int
	interval time.Duration
	logger   *log.Logger
	observe  func(Sample)
	latest   *xsync.MapOf[string, Sample]
	// infoRead holds the keys of info samples read without error
	infoRead *xsync.MapOf[string, bool]
}

// New creates a poller for the controller called name
func New(name string, dev Device, opts Options) *Poller {
	vars := make([]Variable, 0)
	for _, v := range Table() {
		if v.Priority >= opts.MinPriority {
			vars = append(vars, v)
		}
	}
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].Priority > vars[j].Priority })

	channels := opts.Channels
	if len(channels) == 0 {
		for ch := 1; ch <= acm.Channels; ch++ {
			channels = append(channels, ch)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}

	return &Poller{
		name:     name,
		dev:      dev,
		vars:     vars,
		channels: channels,
		interval: interval,
		logger:   logger.With("controller", name),
		observe:  opts.Observe,
		latest:   xsync.NewMapOf[string, Sample](),
		infoRead: xsync.NewMapOf[string, bool](),
	}
}

// Name returns the controller name
func (p *Poller) Name() string {
	return p.name
}

// Variables returns the polled variable names in poll order
func (p *Poller) Variables() []string {
	names := make([]string, len(p.vars))
	for i, v := range p.vars {
		names[i] = v.Name
	}
	return names
}

// Poll reads every variable once and returns the samples taken.
// A failed read is recorded in its sample and does not stop the pass.
// Info variables are skipped once they have been read successfully.
func (p *Poller) Poll() []Sample {
	now := time.Now()

	unit, err := p.dev.Units()
	if err != nil {
		p.logger.Warn("read units", "err", err)
		s := Sample{Controller: p.name, Variable: VarUnits, Err: err.Error(), Time: now}
		p.record(s)
		return []Sample{s}
	}

	var samples []Sample
	for _, v := range p.vars {
		channels := []int{0}
		if v.PerChannel {
			channels = p.channels
		}

		for _, ch := range channels {
			s := Sample{Controller: p.name, Variable: v.Name, Channel: ch, Time: now}
			if v.Kind == KindInfo {
				if _, done := p.infoRead.Load(s.Key()); done {
					continue
				}
			}
			value, err := v.Read(p.dev, ch, unit)
			if err != nil {
				s.Err = err.Error()
				p.logger.Debug("read failed", "variable", v.Name, "channel", ch, "err", err)
			} else {
				s.Value = value
				if v.Kind == KindInfo {
					p.infoRead.Store(s.Key(), true)
				}
			}
			p.record(s)
			samples = append(samples, s)
		}
	}

	return samples
}

func (p *Poller) record(s Sample) {
	p.latest.Store(s.Key(), s)
	if p.observe != nil {
		p.observe(s)
	}
}

// Run polls every interval until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("polling", "interval", p.interval, "variables", len(p.vars), "channels", p.channels)
	p.Poll()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Latest returns the most recent sample of every variable, ordered by
// variable name and channel
func (p *Poller) Latest() []Sample {
	samples := make([]Sample, 0, p.latest.Size())
	p.latest.Range(func(_ string, s Sample) bool {
		samples = append(samples, s)
		return true
	})
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Variable != samples[j].Variable {
			return samples[i].Variable < samples[j].Variable
		}
		return samples[i].Channel < samples[j].Channel
	})
	return samples
}
