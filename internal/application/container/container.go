package container

import (
	"xfeed/internal/application/port"
	"xfeed/internal/application/service"
	"xfeed/internal/domain"
)

type Container struct {
	repo port.Repository

	priceService      *service.PriceService
	snapshotService   *service.SnapshotService
	preferenceService *service.PreferenceService

	defaultGranularity domain.Granularity
}

func New(repo port.Repository, defaultGranularity domain.Granularity) *Container {
	return &Container{
		repo:               repo,
		defaultGranularity: defaultGranularity,
	}
}

func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) PriceService() *service.PriceService {
	if c.priceService == nil {
		c.priceService = service.NewPriceService(c.repo)
	}
	return c.priceService
}

func (c *Container) SnapshotService() *service.SnapshotService {
	if c.snapshotService == nil {
		c.snapshotService = service.NewSnapshotService(c.repo)
	}
	return c.snapshotService
}

func (c *Container) PreferenceService() *service.PreferenceService {
	if c.preferenceService == nil {
		c.preferenceService = service.NewPreferenceService(c.repo, c.defaultGranularity)
	}
	return c.preferenceService
}

func (c *Container) Close() error {
	return c.repo.Close()
}
