package application

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/configpanel/internal/adapter/driven/aescipher"
	"github.com/ericfisherdev/configpanel/internal/domain/model"
	"github.com/ericfisherdev/configpanel/internal/domain/port/driven"
)

// memStore is an in-memory ConfigRepoStore for service tests.
type memStore struct {
	mu    sync.Mutex
	repos map[string]model.ConfigRepo
}

func newMemStore() *memStore {
	return &memStore{repos: make(map[string]model.ConfigRepo)}
}

func (s *memStore) Add(_ context.Context, repo model.ConfigRepo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[repo.ID]; ok {
		return fmt.Errorf("add %s: %w", repo.ID, driven.ErrConfigRepoAlreadyExists)
	}
	s.repos[repo.ID] = repo
	return nil
}

func (s *memStore) Update(_ context.Context, repo model.ConfigRepo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[repo.ID]; !ok {
		return fmt.Errorf("update %s: %w", repo.ID, driven.ErrConfigRepoNotFound)
	}
	s.repos[repo.ID] = repo
	return nil
}

func (s *memStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.repos[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, driven.ErrConfigRepoNotFound)
	}
	delete(s.repos, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.ConfigRepo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[id]
	if !ok {
		return nil, nil
	}
	return &repo, nil
}

func (s *memStore) ListAll(_ context.Context) ([]model.ConfigRepo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ConfigRepo, 0, len(s.repos))
	for _, repo := range s.repos {
		out = append(out, repo)
	}
	return out, nil
}

func (s *memStore) SetLastParse(_ context.Context, id string, lp model.LastParse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[id]
	if !ok {
		return fmt.Errorf("set last parse %s: %w", id, driven.ErrConfigRepoNotFound)
	}
	repo.LastParse = &lp
	s.repos[id] = repo
	return nil
}

func testCipher() *aescipher.Cipher {
	return aescipher.New(bytes.Repeat([]byte{0x42}, 32))
}

func gitRepo(id string) model.ConfigRepo {
	return model.ConfigRepo{
		ID:       id,
		PluginID: "yaml.config.plugin",
		Material: model.Material{
			Type:       model.MaterialTypeGit,
			Attributes: model.GitAttributes{AutoUpdate: true, URL: "https://github.com/org/" + id + ".git", Branch: "main"},
		},
	}
}

func TestRepoService_Create(t *testing.T) {
	store := newMemStore()
	svc := NewRepoService(store, testCipher())

	created, err := svc.Create(context.Background(), gitRepo("app"))
	require.NoError(t, err)

	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Nil(t, created.LastParse)

	stored, err := store.GetByID(context.Background(), "app")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRepoService_Create_SealsPlaintextPassword(t *testing.T) {
	store := newMemStore()
	cipher := testCipher()
	svc := NewRepoService(store, cipher)

	repo := model.ConfigRepo{
		ID:       "svn-config",
		PluginID: "yaml.config.plugin",
		Material: model.Material{
			Type: model.MaterialTypeSvn,
			Attributes: model.SvnAttributes{
				AutoUpdate: true,
				URL:        "svn://svn.example.com/repo",
				Username:   "builder",
				Password:   model.NewPlainSecret("hunter2"),
			},
		},
	}

	created, err := svc.Create(context.Background(), repo)
	require.NoError(t, err)

	attrs, ok := created.Material.Attributes.(model.SvnAttributes)
	require.True(t, ok)
	assert.False(t, attrs.Password.IsPlain(), "plaintext must never be stored")
	require.NotEmpty(t, attrs.Password.Sealed())

	plain, err := cipher.Open(attrs.Password.Sealed())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestRepoService_Create_SealedPasswordPassesThrough(t *testing.T) {
	store := newMemStore()
	svc := NewRepoService(store, testCipher())

	repo := model.ConfigRepo{
		ID:       "p4-config",
		PluginID: "yaml.config.plugin",
		Material: model.Material{
			Type: model.MaterialTypeP4,
			Attributes: model.P4Attributes{
				AutoUpdate: true,
				Port:       "perforce.example.com:1666",
				View:       "//depot/... //client/...",
				Password:   model.NewSealedSecret("AES:already-sealed"),
			},
		},
	}

	created, err := svc.Create(context.Background(), repo)
	require.NoError(t, err)

	attrs, ok := created.Material.Attributes.(model.P4Attributes)
	require.True(t, ok)
	assert.Equal(t, "AES:already-sealed", attrs.Password.Sealed(), "sealed values must not be re-encrypted")
}

func TestRepoService_Create_PlaintextWithoutKey(t *testing.T) {
	store := newMemStore()
	svc := NewRepoService(store, aescipher.New(nil))

	repo := model.ConfigRepo{
		ID:       "tfs-config",
		PluginID: "yaml.config.plugin",
		Material: model.Material{
			Type: model.MaterialTypeTfs,
			Attributes: model.TfsAttributes{
				AutoUpdate:  true,
				URL:         "https://tfs.example.com/tfs",
				ProjectPath: "$/Project",
				Password:    model.NewPlainSecret("hunter2"),
			},
		},
	}

	_, err := svc.Create(context.Background(), repo)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	stored, getErr := store.GetByID(context.Background(), "tfs-config")
	require.NoError(t, getErr)
	assert.Nil(t, stored, "nothing may be persisted when sealing fails")
}

func TestRepoService_Create_Validation(t *testing.T) {
	svc := NewRepoService(newMemStore(), testCipher())
	ctx := context.Background()

	noID := gitRepo("")
	_, err := svc.Create(ctx, noID)
	assert.ErrorIs(t, err, ErrValidation)

	noPlugin := gitRepo("app")
	noPlugin.PluginID = ""
	_, err = svc.Create(ctx, noPlugin)
	assert.ErrorIs(t, err, ErrValidation)

	badMaterial := gitRepo("app")
	badMaterial.Material.Attributes = model.GitAttributes{AutoUpdate: true}
	_, err = svc.Create(ctx, badMaterial)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRepoService_Create_Duplicate(t *testing.T) {
	svc := NewRepoService(newMemStore(), testCipher())
	ctx := context.Background()

	_, err := svc.Create(ctx, gitRepo("app"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, gitRepo("app"))
	assert.ErrorIs(t, err, driven.ErrConfigRepoAlreadyExists)
}

func TestRepoService_Update(t *testing.T) {
	store := newMemStore()
	svc := NewRepoService(store, testCipher())
	ctx := context.Background()

	created, err := svc.Create(ctx, gitRepo("app"))
	require.NoError(t, err)

	updated := created
	updated.PluginID = "json.config.plugin"
	got, err := svc.Update(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, "json.config.plugin", got.PluginID)
	assert.True(t, got.UpdatedAt.After(created.CreatedAt) || got.UpdatedAt.Equal(created.CreatedAt))
}

func TestRepoService_Update_NotFound(t *testing.T) {
	svc := NewRepoService(newMemStore(), testCipher())

	_, err := svc.Update(context.Background(), gitRepo("missing"))
	assert.ErrorIs(t, err, driven.ErrConfigRepoNotFound)
}
