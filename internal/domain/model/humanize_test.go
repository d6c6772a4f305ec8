package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeAttributeKey(t *testing.T) {
	assert.Equal(t, "URL", HumanizeAttributeKey("url"))
	assert.Equal(t, "Auto-update", HumanizeAttributeKey("auto_update"))
	assert.Equal(t, "Project path", HumanizeAttributeKey("project_path"))
	assert.Equal(t, "Password", HumanizeAttributeKey("encrypted_password"))

	// Unknown keys fall back to the raw key, never an error.
	assert.Equal(t, "not_a_key", HumanizeAttributeKey("not_a_key"))
}

func TestHumanizeMaterialType(t *testing.T) {
	assert.Equal(t, "Git", HumanizeMaterialType(MaterialTypeGit))
	assert.Equal(t, "Subversion", HumanizeMaterialType(MaterialTypeSvn))
	assert.Equal(t, "Mercurial", HumanizeMaterialType(MaterialTypeHg))
	assert.Equal(t, "Perforce", HumanizeMaterialType(MaterialTypeP4))
	assert.Equal(t, "Team Foundation Server", HumanizeMaterialType(MaterialTypeTfs))

	assert.Equal(t, "bzr", HumanizeMaterialType("bzr"))
}
