// Package blob selects and re-exports blob store backends.
package blob

import (
	"context"
	"fmt"
	"os"

	"gardencore/internal/infra/blob/core"
	"gardencore/internal/infra/blob/fs"
	"gardencore/internal/infra/blob/memory"
	"gardencore/internal/infra/blob/s3"
)

// Re-exported abstractions so callers depend on one package.
type (
	// Store is an alias of core.Store.
	Store = core.Store
	// Info is an alias of core.Info.
	Info = core.Info
	// PutOptions is an alias of core.PutOptions.
	PutOptions = core.PutOptions
	// SignedURLOptions is an alias of core.SignedURLOptions.
	SignedURLOptions = core.SignedURLOptions
	// Driver is an alias of core.Driver.
	Driver = core.Driver
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3 / MinIO driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported is an alias of core.ErrUnsupported.
var ErrUnsupported = core.ErrUnsupported

// NewMemory returns an in-memory blob store.
func NewMemory() *memory.Store { return memory.New() }

// NewFilesystem returns a filesystem-backed blob store rooted at path.
func NewFilesystem(root string) (*fs.Store, error) { return fs.New(root) }

// Open selects a blob store implementation using environment variables.
//
//	GARDENCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	GARDENCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("GARDENCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(os.Getenv("GARDENCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
