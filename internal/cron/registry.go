package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"
)

// Job is a unit of scheduled work. Name doubles as the metrics label and
// must be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers every job and reports all rejected ones at once.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: make(map[string]struct{}, len(jobs))}
	var errs error
	for _, job := range jobs {
		errs = multierr.Append(errs, registry.Register(job))
	}
	if errs != nil {
		return nil, errs
	}
	return registry, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("nil cron job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("cron job name required")
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	if r == nil {
		return nil
	}
	return slices.Clone(r.jobs)
}
