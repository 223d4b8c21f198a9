package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry, err := NewRegistry(jobA, jobB)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsBadJobs(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "pricing-expiry"}, nil, &stubJob{name: " "}, &stubJob{name: "pricing-expiry"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.Contains(t, err.Error(), `"pricing-expiry" registered twice`)
}

func TestRegisterOnZeroRegistry(t *testing.T) {
	var registry Registry
	require.NoError(t, registry.Register(&stubJob{name: "a"}))
	require.Error(t, registry.Register(&stubJob{name: "a"}))
	assert.Len(t, registry.Jobs(), 1)
}
