package main

import (
	"context"
	"fmt"
	"path"

	"dagger/genrelay/internal/dagger"
)

// bucket groups the S3-compatible destination secrets.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// withChecksums adds a SHA256SUMS file covering every binary in artifacts.
func (g *Genrelay) withChecksums(artifacts *dagger.Directory) *dagger.Directory {
	return dag.Container().
		From("alpine:3.21").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{"sh", "-c", "find . -type f -name 'genrelay' | sort | xargs sha256sum > SHA256SUMS"}).
		Directory("/artifacts")
}

// publish syncs artifacts to each prefix in the bucket, stopping at the
// first failure.
func (g *Genrelay) publish(ctx context.Context, artifacts *dagger.Directory, dst bucket, prefixes ...string) error {
	name, err := dst.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpoint, err := dst.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", dst.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", dst.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range prefixes {
		destination := fmt.Sprintf("s3://%s", path.Join(name, prefix))
		_, err := awsCli.
			WithExec([]string{"aws", "s3", "sync", ".", destination, "--endpoint-url", endpoint}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to upload artifacts to %s: %w", prefix, err)
		}
	}

	return nil
}

// Release builds versioned binaries with checksums and uploads them under
// both the version and "latest".
func (g *Genrelay) Release(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := g.withChecksums(g.BuildRelease(ctx, version, commit))
	dst := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}

	if err := g.publish(ctx, artifacts, dst, version, "latest"); err != nil {
		return artifacts, err
	}
	return artifacts, nil
}

// Nightly builds and uploads nightly artifacts
func (g *Genrelay) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucketName *dagger.Secret,

	// Bucket access key ID
	accessKeyID *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := g.withChecksums(g.BuildRelease(ctx, "nightly", commit))
	dst := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}

	return artifacts, g.publish(ctx, artifacts, dst, "nightly")
}
