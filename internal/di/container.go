// Package di provides dependency injection wiring for the organizer CLI.
package di

import (
	"github.com/samber/do/v2"
)

// Args are the command-line arguments handed to the config loader.
type Args []string

// NewContainer creates and configures the DI container with all providers.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, Args(args))

	// Core infrastructure
	do.Provide(injector, ProvideConfig)
	do.Provide(injector, ProvideLogger)

	// Source discovery
	do.Provide(injector, ProvideParser)
	do.Provide(injector, ProvideScanner)
	do.Provide(injector, ProvideGrouper)

	// Metadata cascade
	do.Provide(injector, ProvideMetadataSources)
	do.Provide(injector, ProvideResolver)

	// Cover cascade
	do.Provide(injector, ProvideCoverRules)
	do.Provide(injector, ProvideCoverSources)
	do.Provide(injector, ProvideCoverFinder)

	// Library mutation
	do.Provide(injector, ProvideStagingManager)
	do.Provide(injector, ProvideTaggingEngine)

	// Orchestration
	do.Provide(injector, ProvidePipeline)

	return injector
}
