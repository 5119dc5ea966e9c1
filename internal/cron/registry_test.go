package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	reg, err := NewRegistry(namedJob("notification-cleanup"), namedJob("outbox-retention"))
	require.NoError(t, err)

	jobs := reg.Jobs()
	require.Equal(t, "notification-cleanup", jobs[0].Name())
	require.Equal(t, "outbox-retention", jobs[1].Name())

	jobs[0] = nil
	require.NotNil(t, reg.Jobs()[0])
}

func TestRegistryRejectsDuplicateAndUnnamedJobs(t *testing.T) {
	_, err := NewRegistry(namedJob("a"), namedJob("a"))
	require.ErrorContains(t, err, "registered twice")

	_, err = NewRegistry(namedJob(""))
	require.Error(t, err)

	_, err = NewRegistry(nil)
	require.Error(t, err)
}
