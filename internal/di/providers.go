package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-organizer/internal/config"
	"github.com/listenupapp/listenup-organizer/internal/covers"
	"github.com/listenupapp/listenup-organizer/internal/group"
	"github.com/listenupapp/listenup-organizer/internal/logger"
	"github.com/listenupapp/listenup-organizer/internal/metadata"
	"github.com/listenupapp/listenup-organizer/internal/metadata/gemini"
	"github.com/listenupapp/listenup-organizer/internal/metadata/googlebooks"
	"github.com/listenupapp/listenup-organizer/internal/metadata/gsearch"
	"github.com/listenupapp/listenup-organizer/internal/metadata/itunes"
	"github.com/listenupapp/listenup-organizer/internal/nameparse"
	"github.com/listenupapp/listenup-organizer/internal/pipeline"
	"github.com/listenupapp/listenup-organizer/internal/scan"
	"github.com/listenupapp/listenup-organizer/internal/staging"
	"github.com/listenupapp/listenup-organizer/internal/tagging"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	args := do.MustInvoke[Args](i)
	return config.LoadConfig(args)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.Logger.Level),
		Format: cfg.Logger.Format,
	})

	log.Info("starting organizer",
		"operation", cfg.Operation,
		"library", cfg.Library.LibraryDir,
		"dry_run", cfg.Run.DryRun,
	)
	return log, nil
}

// ProvideParser provides the filename parser, loading the known-authors
// list when one is configured.
func ProvideParser(i do.Injector) (*nameparse.Parser, error) {
	cfg := do.MustInvoke[*config.Config](i)

	authors, err := nameparse.LoadAuthors(cfg.Library.AuthorsFile)
	if err != nil {
		return nil, err
	}
	log := do.MustInvoke[*logger.Logger](i)
	if len(authors) > 0 {
		log.Info("known-authors list loaded", "authors", len(authors))
	}
	return nameparse.New(cfg.Parser.JunkWords, authors), nil
}

// ProvideScanner provides the source directory scanner.
func ProvideScanner(i do.Injector) (*scan.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	classifier := scan.NewClassifier(cfg.Parser.AudioExtensions, cfg.Parser.ImageExtensions)
	return scan.NewScanner(classifier, log.Logger), nil
}

// ProvideGrouper provides the unit grouper.
func ProvideGrouper(i do.Injector) (*group.Grouper, error) {
	parser := do.MustInvoke[*nameparse.Parser](i)
	log := do.MustInvoke[*logger.Logger](i)
	return group.New(parser, log.Logger), nil
}

// MetadataSources is the resolution cascade in priority order.
type MetadataSources []metadata.Source

// ProvideMetadataSources assembles the cascade: Google Books first for
// structured bibliographic data, Gemini as the fallback that can make sense
// of messy names. Force-gemini flips the structured lookup off entirely.
func ProvideMetadataSources(i do.Injector) (MetadataSources, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var sources MetadataSources
	if cfg.Books.Enabled && !cfg.Gemini.Force {
		sources = append(sources, googlebooks.NewClient("", cfg.Run.HTTPTimeout, log.Logger))
	}
	if cfg.Gemini.APIKey != "" {
		sources = append(sources, gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Run.HTTPTimeout, log.Logger))
	}

	names := make([]string, len(sources))
	for n, s := range sources {
		names[n] = s.Name()
	}
	log.Info("metadata cascade assembled", "sources", names)
	return sources, nil
}

// ProvideResolver provides the metadata resolver.
func ProvideResolver(i do.Injector) (*metadata.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sources := do.MustInvoke[MetadataSources](i)
	return metadata.NewResolver(sources, cfg.Run.MaxRetries, log.Logger), nil
}

// ProvideCoverRules provides the cover validation rules.
func ProvideCoverRules(i do.Injector) (covers.Rules, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return covers.Rules{
		MinResolution:   cfg.Covers.MinResolution,
		SquareTolerance: cfg.Covers.SquareTolerance,
	}, nil
}

// CoverSources is the remote cover cascade in priority order.
type CoverSources []covers.Source

// ProvideCoverSources assembles the remote cover cascade: iTunes always,
// web image search only when its credentials are configured.
func ProvideCoverSources(i do.Injector) (CoverSources, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	sources := CoverSources{itunes.NewClient(cfg.Run.HTTPTimeout, log.Logger)}
	if cfg.SearchEnabled() {
		sources = append(sources, gsearch.NewClient(cfg.Search.APIKey, cfg.Search.EngineID, cfg.Run.HTTPTimeout, log.Logger))
	} else {
		log.Info("web image search disabled, no credentials")
	}
	return sources, nil
}

// ProvideCoverFinder provides the cover cascade runner.
func ProvideCoverFinder(i do.Injector) (*covers.Finder, error) {
	log := do.MustInvoke[*logger.Logger](i)
	rules := do.MustInvoke[covers.Rules](i)
	sources := do.MustInvoke[CoverSources](i)
	return covers.NewFinder(sources, covers.NewDownloader(log.Logger), rules, log.Logger), nil
}

// ProvideStagingManager provides the staging area manager.
func ProvideStagingManager(i do.Injector) (*staging.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return staging.NewManager(cfg.Library.LibraryDir, log.Logger), nil
}

// ProvideTaggingEngine provides the tag writing engine.
func ProvideTaggingEngine(i do.Injector) (*tagging.Engine, error) {
	log := do.MustInvoke[*logger.Logger](i)
	rules := do.MustInvoke[covers.Rules](i)
	return tagging.NewEngine(rules, log.Logger), nil
}

// ProvidePipeline provides the run orchestrator.
func ProvidePipeline(i do.Injector) (*pipeline.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return pipeline.New(
		cfg,
		do.MustInvoke[*scan.Scanner](i),
		do.MustInvoke[*group.Grouper](i),
		do.MustInvoke[*metadata.Resolver](i),
		do.MustInvoke[*covers.Finder](i),
		do.MustInvoke[*staging.Manager](i),
		do.MustInvoke[*tagging.Engine](i),
		log.Logger,
	), nil
}
