package combined

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/echo"
	"github.com/dokzlo13/combinedd/internal/eventbus"
	"github.com/dokzlo13/combinedd/internal/light"
	"github.com/dokzlo13/combinedd/internal/mapping"
	"github.com/dokzlo13/combinedd/internal/zone"
)

// DefaultQueueSize bounds pending controller work.
const DefaultQueueSize = 128

// Work is a unit executed on the controller goroutine.
type Work func(ctx context.Context)

// Options configures a Controller.
type Options struct {
	Name      string
	Zones     mapping.Zones
	Lights    Tracker
	Commander light.Commander
	Journal   Journal     // optional
	Store     TargetStore // optional
	QueueSize int
}

// Controller owns the target brightness and keeps zones and the virtual light in sync.
// All state changes run on the goroutine started by Run, one work item at a time.
type Controller struct {
	name    string
	zones   mapping.Zones
	lights  Tracker
	guard   *echo.Guard
	zone    *zone.Controller
	journal Journal
	store   TargetStore
	members map[string]struct{}
	all     []string

	// owned by the Run goroutine; mu only guards cross-goroutine reads
	mu         sync.RWMutex
	target     uint8
	powered    bool
	last       State
	published  bool
	publishers []Publisher

	work      chan Work
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a controller. Zones must already be validated.
func New(opts Options) *Controller {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	journal := opts.Journal
	if journal == nil {
		journal = nopJournal{}
	}

	guard := echo.NewGuard()
	all := opts.Zones.AllLights()
	members := make(map[string]struct{}, len(all))
	for _, id := range all {
		members[id] = struct{}{}
	}

	return &Controller{
		name:    opts.Name,
		zones:   opts.Zones,
		lights:  opts.Lights,
		guard:   guard,
		zone:    zone.NewController(opts.Commander, guard, journal),
		journal: journal,
		store:   opts.Store,
		members: members,
		all:     all,
		target:  DefaultTarget,
		work:    make(chan Work, opts.QueueSize),
		closing: make(chan struct{}),
	}
}

// AddPublisher registers a state consumer. It may be called while Run is active.
func (c *Controller) AddPublisher(p Publisher) {
	c.mu.Lock()
	c.publishers = append(c.publishers, p)
	c.mu.Unlock()
}

// Guard exposes the echo suppression table (read-only use).
func (c *Controller) Guard() *echo.Guard {
	return c.guard
}

// Controls reports whether id is one of the controller's lights.
func (c *Controller) Controls(id string) bool {
	_, ok := c.members[id]
	return ok
}

// Run processes queued work until ctx is cancelled or Close is called.
func (c *Controller) Run(ctx context.Context) {
	log.Info().Str("light", c.name).Int("lights", len(c.all)).Msg("Combined light controller started")
	for {
		select {
		case <-ctx.Done():
			c.drain(ctx)
			return
		case <-c.closing:
			c.drain(ctx)
			return
		case w := <-c.work:
			c.execute(ctx, w)
		}
	}
}

func (c *Controller) drain(ctx context.Context) {
	for {
		select {
		case w := <-c.work:
			c.execute(ctx, w)
		default:
			return
		}
	}
}

func (c *Controller) execute(ctx context.Context, w Work) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("light", c.name).Msg("Controller work panicked")
		}
	}()
	w(ctx)
}

// Close stops the controller; queued work is drained by Run.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
}

func (c *Controller) closed() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

// Do queues work without blocking. It returns false if the work was dropped.
func (c *Controller) Do(ctx context.Context, w Work) bool {
	if c.closed() {
		log.Warn().Str("light", c.name).Msg("Controller closing, dropping work")
		return false
	}
	select {
	case <-c.closing:
		log.Warn().Str("light", c.name).Msg("Controller closing, dropping work")
		return false
	case <-ctx.Done():
		return false
	case c.work <- w:
		return true
	default:
		log.Warn().Str("light", c.name).Msg("Controller queue full, dropping work")
		return false
	}
}

// DoSync queues work, waiting for queue space and then for the work to finish.
func (c *Controller) DoSync(ctx context.Context, w Work) error {
	if c.closed() {
		return ErrClosed
	}

	done := make(chan struct{})
	wrapped := func(workCtx context.Context) {
		defer close(done)
		w(workCtx)
	}

	select {
	case <-c.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.work <- wrapped:
	}

	select {
	case <-done:
		return nil
	case <-c.closing:
		// Run drains the queue on close, so the work still completes.
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TurnOn turns the combined light on, optionally at a new target brightness.
// A requested brightness of 0 turns it off.
func (c *Controller) TurnOn(ctx context.Context, brightness *uint8) error {
	var req *uint8
	if brightness != nil {
		v := *brightness
		req = &v
	}
	return c.DoSync(ctx, func(workCtx context.Context) {
		c.turnOn(workCtx, req)
	})
}

// TurnOff turns every zone off.
func (c *Controller) TurnOff(ctx context.Context) error {
	return c.DoSync(ctx, c.turnOff)
}

// Sync seeds the target brightness from the current physical state.
func (c *Controller) Sync(ctx context.Context) error {
	return c.DoSync(ctx, c.sync)
}

// Attach subscribes the controller to light updates on bus.
// Updates are merged into the tracker and handled in arrival order.
func (c *Controller) Attach(ctx context.Context, bus *eventbus.Bus) (cancel func()) {
	return bus.Subscribe(eventbus.EventTypeLightUpdate, func(e eventbus.Event) {
		u, ok := e.Data["update"].(light.Update)
		if !ok {
			return
		}
		if err := c.DoSync(ctx, func(workCtx context.Context) { c.handleUpdate(workCtx, u) }); err != nil {
			log.Debug().Err(err).Str("light", u.ID).Msg("Light update not processed")
		}
	})
}

// State returns the current combined light state.
func (c *Controller) State() State {
	c.mu.RLock()
	target, powered := c.target, c.powered
	c.mu.RUnlock()
	s := c.stateFor(target)
	s.Commanded = powered
	return s
}

// Target returns the current target brightness.
func (c *Controller) Target() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// IsOn reports whether any controlled light is on right now.
func (c *Controller) IsOn() bool {
	return light.AnyOn(c.lights, c.all)
}

func (c *Controller) stateFor(target uint8) State {
	s := State{Name: c.name, On: c.IsOn(), Target: target}
	if s.On {
		b := target
		s.Brightness = &b
	}
	return s
}

func (c *Controller) turnOn(ctx context.Context, requested *uint8) {
	if requested != nil && *requested == 0 {
		c.turnOff(ctx)
		return
	}

	session := uuid.NewString()
	if requested != nil {
		c.setTarget(session, *requested, "turn_on")
	}

	pct := light.LevelToPercent(c.Target())
	plan := c.zones.Forward(pct)

	func() {
		release := c.guard.Begin()
		defer release()
		for i, slot := range c.zones.Slots {
			c.zone.Apply(ctx, session, slot.Lights, plan.Zones[i])
		}
	}()

	c.mu.Lock()
	c.powered = true
	c.mu.Unlock()

	log.Info().
		Str("light", c.name).
		Int("overall", int(plan.Percent)).
		Int("stage", plan.Stage+1).
		Str("zones", formatZones(plan.Zones)).
		Msg("Combined light turned on")

	c.publish(true)
}

func (c *Controller) turnOff(ctx context.Context) {
	session := uuid.NewString()

	func() {
		release := c.guard.Begin()
		defer release()
		for _, slot := range c.zones.Slots {
			if len(slot.Lights) == 0 {
				continue
			}
			c.zone.Apply(ctx, session, slot.Lights, 0)
		}
	}()

	c.mu.Lock()
	c.powered = false
	c.mu.Unlock()

	log.Info().Str("light", c.name).Msg("Combined light turned off")
	c.publish(true)
}

// handleUpdate classifies every update of a controlled light, including ones that leave
// the cached state as it was, so each echo resolves its expectation.
func (c *Controller) handleUpdate(ctx context.Context, u light.Update) {
	st, changed := c.lights.Apply(u)
	if !c.Controls(u.ID) {
		return
	}
	c.onExternalChange(ctx, light.Change{ID: u.ID, State: st}, changed)
}

// onExternalChange reacts to a reported state of a controlled light.
// A manual report that changed nothing is a duplicate and carries no new brightness.
func (c *Controller) onExternalChange(_ context.Context, ch light.Change, changed bool) {
	if c.guard.Classify(ch.ID, ch.State) == echo.Self {
		log.Debug().Str("light", ch.ID).Msg("Ignoring echo of own command")
		c.publish(false)
		return
	}
	if !changed {
		return
	}

	c.journal.External(ch.ID, ch.State)

	target, ok := c.estimateTarget()
	if !ok {
		log.Debug().Str("light", ch.ID).Msg("Manual change, brightness indeterminate")
		c.publish(false)
		return
	}

	if target != c.Target() {
		c.setTarget("", target, "external_change")
	}
	log.Info().
		Str("light", c.name).
		Str("source", ch.ID).
		Int("target", int(target)).
		Msg("Target brightness updated from manual change")
	c.publish(true)
}

func (c *Controller) sync(_ context.Context) {
	if c.store != nil {
		stored, ok, err := c.store.LoadTarget(c.name)
		if err != nil {
			log.Warn().Err(err).Str("light", c.name).Msg("Failed to load stored target brightness")
		} else if ok && stored > 0 {
			c.mu.Lock()
			c.target = stored
			c.mu.Unlock()
		}
	}

	if c.IsOn() {
		if target, ok := c.estimateTarget(); ok {
			c.mu.Lock()
			c.target = target
			c.mu.Unlock()
		}
	}

	log.Info().
		Str("light", c.name).
		Bool("on", c.IsOn()).
		Int("target", int(c.Target())).
		Msg("Combined light synced from physical state")
	c.publish(true)
}

// estimateTarget infers the target brightness from what the zones report.
func (c *Controller) estimateTarget() (uint8, bool) {
	var obs mapping.Observed
	for i, slot := range c.zones.Slots {
		if level, ok := light.AverageLevel(c.lights, slot.Lights); ok {
			obs[i] = light.LevelToPercent(level)
		}
	}

	pct, ok := c.zones.Estimate(obs)
	if !ok {
		return 0, false
	}

	target := int(pct / 100 * 255)
	if target < 1 {
		target = 1
	}
	if target > 255 {
		target = 255
	}
	return uint8(target), true
}

func (c *Controller) setTarget(session string, target uint8, reason string) {
	c.mu.Lock()
	c.target = target
	c.mu.Unlock()

	c.journal.TargetChanged(session, target, reason)
	if c.store != nil {
		if err := c.store.SaveTarget(c.name, target); err != nil {
			log.Warn().Err(err).Str("light", c.name).Msg("Failed to persist target brightness")
		}
	}
}

// publish pushes the current state to publishers. Unless force is set,
// nothing is sent when neither on/off nor brightness changed.
func (c *Controller) publish(force bool) {
	s := c.State()

	c.mu.Lock()
	same := c.published && s.On == c.last.On && s.Target == c.last.Target
	if same && !force {
		c.mu.Unlock()
		return
	}
	c.last = s
	c.published = true
	pubs := append([]Publisher(nil), c.publishers...)
	c.mu.Unlock()

	for _, p := range pubs {
		p.Publish(s)
	}
}

func formatZones(z [mapping.NumZones]float64) string {
	return fmt.Sprintf("%d%% | %d%% | %d%% | %d%%", int(z[0]), int(z[1]), int(z[2]), int(z[3]))
}
