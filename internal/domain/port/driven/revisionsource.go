package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
)

// ErrUnsupportedMaterial indicates the revision source cannot resolve
// revisions for the given material (wrong type, or a host it cannot reach).
var ErrUnsupportedMaterial = errors.New("no revision source for material")

// RevisionSource resolves the latest upstream revision of a material.
// Callers should check Supports before calling LatestRevision; materials
// with no supporting source are left unparsed rather than marked failed.
type RevisionSource interface {
	Supports(m model.Material) bool
	LatestRevision(ctx context.Context, m model.Material) (string, error)
}
