// Package combined presents several zones of physical lights as one dimmable light.
package combined

import (
	"errors"

	"github.com/dokzlo13/combinedd/internal/light"
	"github.com/dokzlo13/combinedd/internal/zone"
)

// ErrClosed is returned when work is submitted to a stopped controller.
var ErrClosed = errors.New("combined light controller closed")

// DefaultTarget is the target brightness before anything is known.
const DefaultTarget uint8 = 255

// State is the externally visible state of the combined light.
type State struct {
	Name       string `json:"name"`
	On         bool   `json:"on"`
	Commanded  bool   `json:"commanded"`            // last command issued was turn on
	Brightness *uint8 `json:"brightness,omitempty"` // target while on, absent while off
	Target     uint8  `json:"target"`
}

// Publisher receives the combined light state whenever it changes.
type Publisher interface {
	Publish(State)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(State)

// Publish implements Publisher.
func (f PublisherFunc) Publish(s State) { f(s) }

// Tracker mirrors physical light state and accepts partial updates.
type Tracker interface {
	light.Reader
	Apply(u light.Update) (light.State, bool)
}

// Journal records what the controller did and observed.
type Journal interface {
	zone.Journal
	External(lightID string, st light.State)
	TargetChanged(session string, target uint8, reason string)
}

// TargetStore keeps the target brightness across restarts.
type TargetStore interface {
	LoadTarget(name string) (target uint8, ok bool, err error)
	SaveTarget(name string, target uint8) error
}

type nopJournal struct{}

func (nopJournal) Sent(string, string, uint8)          {}
func (nopJournal) Failed(string, string, error)        {}
func (nopJournal) External(string, light.State)        {}
func (nopJournal) TargetChanged(string, uint8, string) {}
