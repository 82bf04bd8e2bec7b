// Seagent CI
//
// Package main provides reproducible builds and tests locally and in CI.
package main

import (
	"context"

	"dagger/seagent/internal/dagger"
)

// Seagent is the CI module for the seagent CLI
type Seagent struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Seagent CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Seagent {
	return &Seagent{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container for platform with
// gcc, libsqlite3-dev, CGO enabled, and the project source mounted. The
// sqlite transcript store needs cgo, so every build and test runs here.
func (s *Seagent) goContainer(platform dagger.Platform) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{Platform: platform}).
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod-"+string(platform))).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+string(platform))).
		WithWorkdir("/src").
		WithDirectory("/src", s.Source)
}

// Test runs the seagent unit tests via "go test"
func (s *Seagent) Test(ctx context.Context) (string, error) {
	return s.goContainer("").
		WithExec([]string{"go", "test", "-v", "./..."}).
		Stdout(ctx)
}
