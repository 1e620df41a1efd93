// Package registry holds the Views of a dataset, keyed by sequence name.
// The registry owns its Views: the assembler fills them, and readers look
// them up by name once they have been published.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/tracks/interval"
	"github.com/grailbio/tracks/track"
)

// Listener is notified when a View is published.  Listeners are called
// synchronously from Publish, without the registry lock held.
type Listener interface {
	Published(name string, v track.View, state track.State)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(name string, v track.View, state track.State)

// Published implements Listener.
func (f ListenerFunc) Published(name string, v track.View, state track.State) {
	f(name, v, state)
}

type entry struct {
	view  track.View
	state track.State
}

// Registry is safe for concurrent use.
type Registry struct {
	dataset track.DatasetID

	mu        sync.Mutex
	views     map[string]*entry
	listeners []Listener
}

// New returns an empty registry for the dataset.
func New(dataset track.DatasetID) *Registry {
	return &Registry{dataset: dataset, views: map[string]*entry{}}
}

// Dataset returns the id of the dataset the registry belongs to.
func (r *Registry) Dataset() track.DatasetID { return r.dataset }

// AddListener registers l for future Publish calls.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Add registers v under v.Name() in the Unpopulated state and binds it to
// the registry's dataset.  It is an error to add a name twice.
func (r *Registry) Add(v track.View) error {
	name := v.Name()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[name]; ok {
		return errors.E(errors.Exists, "registry: view", name, "already registered")
	}
	v.SetDataset(r.dataset)
	r.views[name] = &entry{view: v, state: track.Unpopulated}
	return nil
}

// AddSequences creates and adds an empty View of the given kind for each
// sequence.
func (r *Registry) AddSequences(kind track.PayloadKind, seqs []Sequence) error {
	for _, seq := range seqs {
		v, err := track.NewView(kind, seq.Name, r.dataset, seq.Interval)
		if err != nil {
			return errors.E(errors.Invalid, err, "registry: sequence", seq.Name)
		}
		if err := r.Add(v); err != nil {
			return err
		}
	}
	return nil
}

// View returns the View registered under name.  The error for an unknown
// name suggests the closest registered names.
func (r *Registry) View(name string) (track.View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[name]
	if !ok {
		return nil, r.notFound(name)
	}
	return e.view, nil
}

// State returns the last published state of the named View.
func (r *Registry) State(name string) (track.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.views[name]
	if !ok {
		return track.Unpopulated, r.notFound(name)
	}
	return e.state, nil
}

// Remove drops the named View.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[name]; !ok {
		return r.notFound(name)
	}
	delete(r.views, name)
	return nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

// Publish replaces the named View with v, records its state and notifies
// the listeners.  v must cover the same interval as the View it replaces.
func (r *Registry) Publish(name string, v track.View, state track.State) error {
	r.mu.Lock()
	e, ok := r.views[name]
	if !ok {
		err := r.notFound(name)
		r.mu.Unlock()
		return err
	}
	if v.Interval() != e.view.Interval() {
		r.mu.Unlock()
		return errors.E(errors.Invalid, "registry: published view", v.Interval().String(),
			"does not match", name, e.view.Interval().String())
	}
	v.SetDataset(r.dataset)
	e.view, e.state = v, state
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l.Published(name, v, state)
	}
	return nil
}

const maxSuggestionDistance = 3

// notFound returns a NotExist error for name.  r.mu must be held.
func (r *Registry) notFound(name string) error {
	best := -1
	var suggestions []string
	for other := range r.views {
		d := matchr.Levenshtein(name, other)
		if d > maxSuggestionDistance {
			continue
		}
		switch {
		case best < 0 || d < best:
			best, suggestions = d, []string{other}
		case d == best:
			suggestions = append(suggestions, other)
		}
	}
	if len(suggestions) == 0 {
		return errors.E(errors.NotExist, "registry: no view named", name)
	}
	sort.Strings(suggestions)
	return errors.E(errors.NotExist, "registry: no view named", name, "(did you mean "+strings.Join(suggestions, ", ")+"?)")
}

// Sequence names a genomic interval to hold a View.
type Sequence struct {
	Name     string
	Interval interval.GenomicInterval
}
