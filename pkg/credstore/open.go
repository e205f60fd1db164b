package credstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/cipher"
)

// Options select and configure a backend for Open.
type Options struct {
	Backend string
	SSM     SSMConfig
	// DB and Sealer are used by the database backend.
	DB     *gorm.DB
	Sealer cipher.Sealer
}

// Open builds the configured backend wrapped with metrics.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)

	switch opts.Backend {
	case BackendSSM, "":
		s, err = NewSSMStore(ctx, opts.SSM)
	case BackendDatabase:
		if opts.DB == nil {
			return nil, fmt.Errorf("credential store %q requires a database connection", opts.Backend)
		}
		s = NewDatabaseStore(opts.DB, opts.Sealer)
	case BackendMemory:
		s = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown credential store %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == "" {
		backend = BackendSSM
	}
	return Instrument(backend, s), nil
}
