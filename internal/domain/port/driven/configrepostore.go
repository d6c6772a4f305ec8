// Package driven declares the driven ports of the config repo registry and
// the sentinel errors their implementations return.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
)

// Sentinel errors returned by ConfigRepoStore implementations.
var (
	// ErrConfigRepoNotFound indicates the requested config repo does not exist.
	ErrConfigRepoNotFound = errors.New("config repo not found")

	// ErrConfigRepoAlreadyExists indicates a config repo with the same id already exists.
	ErrConfigRepoAlreadyExists = errors.New("config repo already exists")
)

// ConfigRepoStore defines the driven port for config repo persistence.
// Add returns ErrConfigRepoAlreadyExists on a duplicate id. Update, Remove,
// GetByID, and SetLastParse return ErrConfigRepoNotFound when the repo does
// not exist, except GetByID which returns nil, nil.
type ConfigRepoStore interface {
	Add(ctx context.Context, repo model.ConfigRepo) error
	Update(ctx context.Context, repo model.ConfigRepo) error
	Remove(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.ConfigRepo, error)
	ListAll(ctx context.Context) ([]model.ConfigRepo, error)
	SetLastParse(ctx context.Context, id string, lastParse model.LastParse) error
}
