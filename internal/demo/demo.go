// Package demo holds the runnable demonstrations and the registry the
// CLI dispatches through. Every demo receives its dependencies through
// an Env so runs stay independent and testable.
package demo

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/fiberlab/fiberlab/internal/output"
	"github.com/fiberlab/fiberlab/internal/recorder"
)

// Env carries everything a demo needs for one run. There is no shared
// global state between runs.
type Env struct {
	Out        io.Writer
	Fmt        *output.Formatter
	Carriers   int
	Tasks      int
	SpinFactor int
	Recorder   *recorder.Recorder
}

// NewEnv builds an Env with defaults sized for an interactive run.
func NewEnv(out io.Writer) *Env {
	return &Env{
		Out:        out,
		Fmt:        output.NewFormatter(out),
		Carriers:   4,
		Tasks:      50,
		SpinFactor: 1,
		Recorder:   recorder.New(recorder.DefaultCapacity),
	}
}

// Demo is one named, self-contained demonstration.
type Demo struct {
	Name     string
	Topic    string
	Synopsis string
	Run      func(ctx context.Context, env *Env) error
}

// Registry is an ordered collection of demos with lookup by name.
type Registry struct {
	demos  []*Demo
	byName map[string]*Demo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Demo)}
}

// Register adds a demo. Duplicate names are a programming error.
func (r *Registry) Register(d *Demo) {
	if _, ok := r.byName[d.Name]; ok {
		panic(fmt.Sprintf("demo: duplicate registration of %q", d.Name))
	}
	r.demos = append(r.demos, d)
	r.byName[d.Name] = d
}

// Lookup finds a demo by name.
func (r *Registry) Lookup(name string) (*Demo, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns the demos in registration order.
func (r *Registry) All() []*Demo {
	out := make([]*Demo, len(r.demos))
	copy(out, r.demos)
	return out
}

// Topics returns the distinct topics in sorted order.
func (r *Registry) Topics() []string {
	seen := make(map[string]bool)
	var topics []string
	for _, d := range r.demos {
		if !seen[d.Topic] {
			seen[d.Topic] = true
			topics = append(topics, d.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// ByTopic returns the demos for one topic in registration order.
func (r *Registry) ByTopic(topic string) []*Demo {
	var out []*Demo
	for _, d := range r.demos {
		if d.Topic == topic {
			out = append(out, d)
		}
	}
	return out
}

// Default builds the registry with every shipped demo.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range creationDemos() {
		r.Register(d)
	}
	for _, d := range schedulingDemos() {
		r.Register(d)
	}
	for _, d := range pinningDemos() {
		r.Register(d)
	}
	for _, d := range monitoringDemos() {
		r.Register(d)
	}
	for _, d := range structuredDemos() {
		r.Register(d)
	}
	for _, d := range retailDemos() {
		r.Register(d)
	}
	return r
}
