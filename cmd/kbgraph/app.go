package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coolbeans/kbgraph/pkg/config"
	"github.com/coolbeans/kbgraph/pkg/graph"
	"github.com/coolbeans/kbgraph/pkg/kb"
	"github.com/coolbeans/kbgraph/pkg/persist"
	"github.com/coolbeans/kbgraph/pkg/reification"
	"github.com/coolbeans/kbgraph/pkg/store"
)

// app holds the knowledge bases described by the loaded configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	service  *kb.Service
	journal  *persist.SQLite
	registry *prometheus.Registry
	metrics  *reification.Metrics
}

// openApp loads the configuration and registers every configured knowledge
// base, restoring persisted triples and importing seed files into empty ones.
func openApp(ctx context.Context, configPath string, logOutput io.Writer) (*app, error) {
	cfg, err := config.NewLoader(nil).Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Log.NewLogger(logOutput)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := reification.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		service: kb.NewService(
			kb.WithLogger(logger),
			kb.WithQueryTimeout(cfg.Store.QueryTimeout),
		),
	}

	if cfg.Store.Path != "" {
		a.journal, err = persist.Open(cfg.Store.Path, persist.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	for _, kbc := range cfg.KnowledgeBases {
		if err := a.register(ctx, kbc); err != nil {
			a.Close()
			return nil, fmt.Errorf("knowledge base %s: %w", kbc.ID, err)
		}
	}

	return a, nil
}

func (a *app) register(ctx context.Context, kbc config.KnowledgeBaseConfig) error {
	knowledgeBase, err := kbc.KnowledgeBase()
	if err != nil {
		return err
	}

	repo := store.NewTripleStore()
	if a.journal != nil {
		restored, err := a.journal.Attach(ctx, knowledgeBase.ID, repo)
		if err != nil {
			return err
		}
		a.logger.Debug("Restored knowledge base",
			slog.String("kb", knowledgeBase.ID),
			slog.Int("triples", restored))
	}

	if repo.Count() == 0 {
		for _, path := range kbc.Import {
			n, err := importFile(ctx, repo, path)
			if err != nil {
				return err
			}
			a.logger.Info("Imported seed file",
				slog.String("kb", knowledgeBase.ID),
				slog.String("path", path),
				slog.Int("triples", n))
		}
	}

	return a.service.Register(knowledgeBase, repo)
}

// Close releases the repositories and the journal.
func (a *app) Close() error {
	var errs []error
	for _, knowledgeBase := range a.service.List() {
		if repo, err := a.service.Repository(knowledgeBase.ID); err == nil {
			errs = append(errs, repo.Close())
		}
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	return errors.Join(errs...)
}

// knowledgeBase returns the registered knowledge base with the given ID.
func (a *app) knowledgeBase(id string) (kb.KnowledgeBase, error) {
	return a.service.Get(id)
}

// strategy returns the reification strategy of knowledgeBase.
func (a *app) strategy(knowledgeBase kb.KnowledgeBase) (reification.Strategy, error) {
	return reification.ForKnowledgeBase(knowledgeBase, a.service,
		reification.WithLogger(a.logger),
		reification.WithMetrics(a.metrics))
}

// writeMetrics writes the reification counters in the Prometheus text format.
func (a *app) writeMetrics(path string) error {
	return prometheus.WriteToTextfile(path, a.registry)
}

func importFile(ctx context.Context, repo *store.TripleStore, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	triples, err := store.ParseNTriples(file)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	err = repo.Update(ctx, func(tx *store.Tx) error {
		return tx.Add(triples...)
	})
	if err != nil {
		return 0, err
	}
	return len(triples), nil
}

// prefixes returns the standard prefixes plus the ones of knowledgeBase.
func prefixes(knowledgeBase kb.KnowledgeBase) map[string]string {
	all := store.DefaultPrefixes()
	for prefix, namespace := range knowledgeBase.Prefixes() {
		all[prefix] = namespace
	}
	return all
}

// expandIRI resolves a command line identifier: <iri> and absolute IRIs are
// taken as is, prefixed names are expanded and bare names are placed in the
// knowledge base's namespace.
func expandIRI(knowledgeBase kb.KnowledgeBase, s string) string {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return s[1 : len(s)-1]
	}

	colon := strings.Index(s, ":")
	if colon < 0 {
		return knowledgeBase.BaseNamespace + s
	}
	if namespace, ok := prefixes(knowledgeBase)[s[:colon]]; ok {
		return namespace + s[colon+1:]
	}
	return s
}

// valueFlags describes how a command line value is typed.
type valueFlags struct {
	iri      bool
	datatype string
	lang     string
}

func (f valueFlags) value(knowledgeBase kb.KnowledgeBase, lexical string) graph.Value {
	switch {
	case f.iri:
		return graph.IRIValue(expandIRI(knowledgeBase, lexical))
	case f.lang != "":
		return graph.LangStringValue(lexical, f.lang)
	case f.datatype != "":
		return graph.TypedValue(lexical, expandIRI(knowledgeBase, f.datatype))
	default:
		return graph.StringValue(lexical)
	}
}

// findStatement returns the statement of property with the given value.
func findStatement(statements []graph.Statement, property string, value graph.Value) (graph.Statement, bool) {
	for _, statement := range statements {
		if statement.Property.Identifier == property && statement.Value == value {
			return statement, true
		}
	}
	return graph.Statement{}, false
}

// formatValue renders a value in N-Triples syntax.
func formatValue(value graph.Value) string {
	term, err := graph.ValueMapper{}.ToStoreValue(value)
	if err != nil {
		return value.String()
	}
	return term.Key()
}
