package cron

import (
	"context"
	"testing"
)

type namedJob struct {
	name string
}

func (j namedJob) Name() string { return j.name }

func (j namedJob) Run(_ context.Context) error { return nil }

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry(namedJob{name: "first"}, nil, namedJob{name: "second"})
	registry.Register(namedJob{name: "third"})
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if jobs[i].Name() != want {
			t.Fatalf("job %d: expected %q, got %q", i, want, jobs[i].Name())
		}
	}
}

func TestRegistryJobsReturnsCopy(t *testing.T) {
	registry := NewRegistry(namedJob{name: "only"})

	jobs := registry.Jobs()
	jobs[0] = namedJob{name: "mutated"}

	if registry.Jobs()[0].Name() != "only" {
		t.Fatalf("mutating the returned slice should not affect the registry")
	}
}
