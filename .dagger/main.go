// Genrelay CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/genrelay/internal/dagger"
)

// Genrelay is the main module for the genrelay CI/CD pipeline
type Genrelay struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Genrelay CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", "build", "tmp", ".genrelay", ".env", "public"]
	source *dagger.Directory,
) *Genrelay {
	return &Genrelay{
		Source: source,
	}
}

// goContainer returns an Alpine Go container with the project source mounted.
// The relay is pure Go, so CGO stays off everywhere.
func (g *Genrelay) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", g.Source)
}

// Test runs the unit tests via "go test"
//
// +check
func (g *Genrelay) Test(ctx context.Context) (string, error) {
	return g.goContainer().
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}

// Serve runs the relay as a service on port 3000 for local smoke testing.
// Provider keys are passed as secrets and never baked into the image.
func (g *Genrelay) Serve(
	// OpenAI API key
	// +optional
	openaiKey *dagger.Secret,

	// Gemini API key
	// +optional
	geminiKey *dagger.Secret,
) *dagger.Service {
	ctr := g.goContainer().
		WithExec([]string{"go", "build", "-o", "/usr/local/bin/genrelay", "./cli/genrelay"})

	if openaiKey != nil {
		ctr = ctr.WithSecretVariable("OPENAI_API_KEY", openaiKey)
	}
	if geminiKey != nil {
		ctr = ctr.WithSecretVariable("GEMINI_API_KEY", geminiKey)
	}

	return ctr.
		WithExposedPort(3000).
		AsService(dagger.ContainerAsServiceOpts{
			Args: []string{"genrelay", "serve", "--listen", ":3000"},
		})
}
