// Package pipeline orchestrates one experience build and verification cycle:
// transform the source per target, resolve binding collisions, evaluate the
// server artifact in the sandbox, statically validate the client artifact,
// and run the declared test suite. Each cycle allocates fresh instances of
// every intermediate structure; no state is shared across builds except the
// evaluator's compiled-program cache, which is keyed by content hash.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xpbuild/internal/deps"
	"xpbuild/internal/experience"
	"xpbuild/internal/harness"
	"xpbuild/internal/sandbox"
	"xpbuild/internal/shim"
	"xpbuild/internal/transform"
	"xpbuild/internal/validate"
)

// Artifact is one rewritten, host-ready representation of the source module.
// Immutable once produced; exactly one per target per build.
type Artifact struct {
	Code   string
	Target shim.Target
}

// BuildResult is the complete output of one build: both artifacts, the
// advisory validator findings for the client artifact, and the extracted
// module. Owned exclusively by the caller for one build/test cycle.
type BuildResult struct {
	ID       string
	Entry    string
	Server   *Artifact
	Client   *Artifact
	Findings []string
	Module   *experience.ExtractedModule
	Duration time.Duration
}

// Pipeline drives builds for one dependency set. Reusable across builds;
// the embedded evaluator keeps its program cache warm for watch mode.
type Pipeline struct {
	set      *deps.ExternalDependencySet
	registry string
	eval     *sandbox.Evaluator
	log      *zap.Logger
}

// New returns a pipeline over set. registry may be empty for the default
// client registry global; logger may be nil.
func New(set *deps.ExternalDependencySet, registry string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		set:      set,
		registry: registry,
		eval:     sandbox.NewEvaluator(),
		log:      logger,
	}
}

// BuildFile reads the entry source and builds it.
func (p *Pipeline) BuildFile(entry string) (*BuildResult, error) {
	src, err := os.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	res, err := p.Build(string(src))
	if err != nil {
		return nil, err
	}
	res.Entry = entry
	return res, nil
}

// Build runs the full cycle over source text. The two artifact builds are
// pure functions of the same read-only source with independent outputs, so
// they run concurrently; evaluation waits for the server artifact.
func (p *Pipeline) Build(source string) (*BuildResult, error) {
	start := time.Now()
	id := uuid.NewString()

	transformer := transform.New(p.set)
	serverEnv := shim.ServerEnvironment(p.set)
	clientEnv := shim.ClientEnvironment(p.set, p.registry)
	resolver := transform.NewResolver(serverEnv.Names())

	var server, client *Artifact
	var g errgroup.Group

	g.Go(func() error {
		// Server target: shim names arrive as evaluator parameters, so the
		// artifact carries only alias declarations ahead of user code.
		code := resolver.Resolve(transformer.Apply(source))
		server = &Artifact{Code: code, Target: shim.TargetServer}
		return nil
	})
	g.Go(func() error {
		// Client target: registry accessors must precede alias declarations,
		// which must precede user code.
		code := clientEnv.Declarations() + resolver.Resolve(transformer.Apply(source))
		client = &Artifact{Code: code, Target: shim.TargetClient}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	evalRes, err := p.eval.Evaluate(server.Code, serverEnv)
	if err != nil {
		p.log.Error("server artifact evaluation failed", zap.String("build", id), zap.Error(err))
		return nil, fmt.Errorf("evaluate server artifact: %w", err)
	}

	mod, err := experience.Extract(evalRes.Runtime, evalRes.Value)
	if err != nil {
		p.log.Error("module extraction failed", zap.String("build", id), zap.Error(err))
		return nil, fmt.Errorf("extract module: %w", err)
	}

	findings := validate.New().Check(client.Code)
	for _, f := range findings {
		p.log.Warn("client artifact finding", zap.String("build", id), zap.String("finding", f))
	}

	p.log.Info("build complete",
		zap.String("build", id),
		zap.Int("tools", len(mod.Tools)),
		zap.Int("tests", len(mod.Tests)),
		zap.Int("server_bytes", len(server.Code)),
		zap.Int("client_bytes", len(client.Code)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &BuildResult{
		ID:       id,
		Server:   server,
		Client:   client,
		Findings: findings,
		Module:   mod,
		Duration: time.Since(start),
	}, nil
}

// Verify builds source and runs its declared test suite.
func (p *Pipeline) Verify(source string) (*BuildResult, harness.RunSummary, error) {
	res, err := p.Build(source)
	if err != nil {
		return nil, harness.RunSummary{}, err
	}
	summary := harness.NewRunner(res.Module).Run()
	p.log.Info("test run complete",
		zap.String("build", res.ID),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
	)
	return res, summary, nil
}

// VerifyFile is Verify over an entry path.
func (p *Pipeline) VerifyFile(entry string) (*BuildResult, harness.RunSummary, error) {
	src, err := os.ReadFile(entry)
	if err != nil {
		return nil, harness.RunSummary{}, fmt.Errorf("read entry: %w", err)
	}
	res, summary, err := p.Verify(string(src))
	if err != nil {
		return nil, summary, err
	}
	res.Entry = entry
	return res, summary, nil
}
