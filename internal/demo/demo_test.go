package demo

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestEveryRegisteredDemoRunsClean(t *testing.T) {
	t.Parallel()

	for _, d := range Default().All() {
		d := d
		t.Run(d.Name, func(t *testing.T) {
			t.Parallel()
			env := NewEnv(io.Discard)
			env.Carriers = 2
			env.Tasks = 2

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := d.Run(ctx, env); err != nil {
				t.Fatalf("demo %s: %v", d.Name, err)
			}
		})
	}
}

func TestRegistryLookupAndTopics(t *testing.T) {
	t.Parallel()

	reg := Default()
	if _, ok := reg.Lookup("pinning"); !ok {
		t.Error("pinning demo not registered")
	}
	if _, ok := reg.Lookup("no-such-demo"); ok {
		t.Error("Lookup found a demo that does not exist")
	}

	for _, topic := range reg.Topics() {
		if len(reg.ByTopic(topic)) == 0 {
			t.Errorf("topic %q has no demos", topic)
		}
	}

	seen := make(map[string]bool)
	for _, d := range reg.All() {
		if seen[d.Name] {
			t.Errorf("duplicate demo name %q", d.Name)
		}
		seen[d.Name] = true
		if d.Synopsis == "" || d.Topic == "" || d.Run == nil {
			t.Errorf("demo %q is incomplete", d.Name)
		}
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic")
		}
	}()

	r := NewRegistry()
	d := &Demo{Name: "dup", Topic: "t", Synopsis: "s"}
	r.Register(d)
	r.Register(d)
}

func TestRunInstrumentedEmitsEvents(t *testing.T) {
	t.Parallel()

	env := NewEnv(io.Discard)
	env.Carriers = 2
	env.Tasks = 4
	env.Recorder.Start()

	if err := RunInstrumented(context.Background(), env); err != nil {
		t.Fatalf("RunInstrumented: %v", err)
	}
	env.Recorder.Stop()

	if env.Recorder.Len() == 0 {
		t.Fatal("instrumented run recorded no events")
	}
}

func TestMonitoringDemoFlagsItsOwnPinning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	env := NewEnv(&buf)
	env.Carriers = 2
	env.Tasks = 4

	d, ok := Default().Lookup("monitoring")
	if !ok {
		t.Fatal("monitoring demo not registered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Run(ctx, env); err != nil {
		t.Fatalf("demo monitoring: %v", err)
	}

	// The workload pins on purpose, so the printed insights must not
	// call the pool healthy while also reporting pinning.
	out := buf.String()
	if strings.Contains(out, "Carrier Pinning Detected") && strings.Contains(out, "Healthy Carrier Pool") {
		t.Error("insights report pinning and a healthy pool at once")
	}
}
