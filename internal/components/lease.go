package components

import (
	"context"
	"fmt"

	"gamewatch/internal/lease"
)

// LeaseComponent connects the cross-instance cycle lease.
type LeaseComponent struct {
	lease *lease.RedisLease
}

func NewLeaseComponent(l *lease.RedisLease) *LeaseComponent {
	return &LeaseComponent{lease: l}
}

func (c *LeaseComponent) Name() string {
	return LeaseComponentName
}

func (c *LeaseComponent) Dependencies() []string {
	return []string{}
}

func (c *LeaseComponent) Validate() error {
	if c.lease == nil {
		return fmt.Errorf("lease: redis lease is required")
	}
	return c.lease.Validate()
}

func (c *LeaseComponent) Initialize(ctx context.Context) error {
	return c.lease.Initialize(ctx)
}

func (c *LeaseComponent) Close(ctx context.Context) error {
	return c.lease.Close(ctx)
}
