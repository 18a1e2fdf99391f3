package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dagger/genrelay/internal/dagger"
)

// tidyScript snapshots the module files, tidies, verifies the downloaded
// modules and diffs. A missing go.sum diffs against an empty file so a
// first commit without one fails with the full listing.
const tidyScript = `set -e
cp go.mod /tmp/go.mod.HEAD
if [ -f go.sum ]; then cp go.sum /tmp/go.sum.HEAD; else : > /tmp/go.sum.HEAD; fi
go mod tidy
go mod verify
diff -u /tmp/go.mod.HEAD go.mod
diff -u /tmp/go.sum.HEAD go.sum
`

// CheckGoModTidy fails when "go mod tidy" would change go.mod or go.sum, and
// then checks that the tidied module still builds the genrelay binary.
//
// +check
func (g *Genrelay) CheckGoModTidy(ctx context.Context) (string, error) {
	tidied := g.goContainer().
		WithExec([]string{"sh", "-c", tidyScript})

	if _, err := tidied.Sync(ctx); err != nil {
		var e *dagger.ExecError
		if errors.As(err, &e) {
			return "", fmt.Errorf(
				"go.mod or go.sum are not tidy: run 'go mod tidy' and commit the changes\n\n%s%s",
				e.Stdout, e.Stderr,
			)
		}
		return "", fmt.Errorf("unexpected error: %w", err)
	}

	out, err := tidied.
		WithExec([]string{"go", "build", "-o", "/tmp/genrelay", "./cli/genrelay"}).
		WithExec([]string{"/tmp/genrelay", "version", "--short"}).
		Stdout(ctx)
	if err != nil {
		return "", fmt.Errorf("tidy module does not build ./cli/genrelay: %w", err)
	}

	return fmt.Sprintf("go.mod and go.sum are tidy; genrelay %s", strings.TrimSpace(out)), nil
}
