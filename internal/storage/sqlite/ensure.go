package sqlite

import "github.com/felixgeelhaar/codeeasy/internal/storage"

// Ensure Store implements the storage interface.
var _ storage.Store = (*Store)(nil)
