// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
	"github.com/ericfisherdev/configpanel/internal/domain/port/driven"
)

// ErrValidation indicates a create or update request that fails domain
// validation. Handlers map it to 422 Unprocessable Entity.
var ErrValidation = errors.New("validation failed")

// RepoService orchestrates config repo writes: validation, sealing of
// plaintext material passwords, and persistence.
type RepoService struct {
	store  driven.ConfigRepoStore
	cipher driven.SecretCipher
}

// NewRepoService creates a RepoService with all required dependencies.
func NewRepoService(store driven.ConfigRepoStore, cipher driven.SecretCipher) *RepoService {
	return &RepoService{
		store:  store,
		cipher: cipher,
	}
}

// Create validates the repo, seals any plaintext password, and persists it.
// Returns driven.ErrConfigRepoAlreadyExists on a duplicate id.
func (s *RepoService) Create(ctx context.Context, repo model.ConfigRepo) (model.ConfigRepo, error) {
	if err := validateRepo(repo); err != nil {
		return model.ConfigRepo{}, err
	}

	if err := s.sealMaterial(&repo.Material); err != nil {
		return model.ConfigRepo{}, err
	}

	now := time.Now().UTC()
	repo.CreatedAt = now
	repo.UpdatedAt = now
	repo.LastParse = nil // a fresh repo has never been parsed

	if err := s.store.Add(ctx, repo); err != nil {
		return model.ConfigRepo{}, err
	}

	return repo, nil
}

// Update validates the repo, seals any plaintext password, and replaces the
// stored repo. A password submitted back as encrypted_password passes through
// untouched, so edit round-trips never re-encrypt an already-sealed value.
// Returns driven.ErrConfigRepoNotFound when the repo does not exist.
func (s *RepoService) Update(ctx context.Context, repo model.ConfigRepo) (model.ConfigRepo, error) {
	if err := validateRepo(repo); err != nil {
		return model.ConfigRepo{}, err
	}

	if err := s.sealMaterial(&repo.Material); err != nil {
		return model.ConfigRepo{}, err
	}

	repo.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, repo); err != nil {
		return model.ConfigRepo{}, err
	}

	return repo, nil
}

// sealMaterial replaces a plaintext password in the material's attributes
// with its sealed form. Sealed and empty secrets are left as-is.
func (s *RepoService) sealMaterial(m *model.Material) error {
	switch attrs := m.Attributes.(type) {
	case model.SvnAttributes:
		sealed, err := s.sealSecret(attrs.Password)
		if err != nil {
			return err
		}
		attrs.Password = sealed
		m.Attributes = attrs
	case model.P4Attributes:
		sealed, err := s.sealSecret(attrs.Password)
		if err != nil {
			return err
		}
		attrs.Password = sealed
		m.Attributes = attrs
	case model.TfsAttributes:
		sealed, err := s.sealSecret(attrs.Password)
		if err != nil {
			return err
		}
		attrs.Password = sealed
		m.Attributes = attrs
	}
	return nil
}

func (s *RepoService) sealSecret(secret model.Secret) (model.Secret, error) {
	if !secret.IsPlain() {
		return secret, nil
	}

	ciphertext, err := s.cipher.Seal(secret.Plain())
	if err != nil {
		return model.Secret{}, fmt.Errorf("seal material password: %w", err)
	}

	return model.NewSealedSecret(ciphertext), nil
}

// validateRepo checks the identity fields and delegates material checks to
// the model.
func validateRepo(repo model.ConfigRepo) error {
	if repo.ID == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if repo.PluginID == "" {
		return fmt.Errorf("%w: plugin_id is required", ErrValidation)
	}
	if err := repo.Material.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return nil
}
