//go:build !cgo

package archive

import (
	"errors"

	"go.uber.org/zap"
)

// NewSQLiteStore is unavailable without cgo; the sqlite driver needs it.
func NewSQLiteStore(string, *zap.Logger) (Store, error) {
	return nil, errors.New("sqlite archive requires a cgo build; use the file backend")
}
