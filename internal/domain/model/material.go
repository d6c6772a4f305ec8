// Package model contains the domain entities of the config repo registry:
// materials (source-control connection descriptors), config repos, and their
// parse state.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaterialType is the discriminator tag of the material tagged union.
type MaterialType string

const (
	MaterialTypeGit MaterialType = "git"
	MaterialTypeSvn MaterialType = "svn"
	MaterialTypeHg  MaterialType = "hg"
	MaterialTypeP4  MaterialType = "p4"
	MaterialTypeTfs MaterialType = "tfs"
)

// DefaultGitBranch is the branch a fresh git material points at when none is given.
const DefaultGitBranch = "master"

// ErrUnknownMaterialType indicates a material payload whose type tag is not
// one of the five recognized values. This is a fatal input error for the
// deserialization call; unknown repos must not be silently dropped.
var ErrUnknownMaterialType = errors.New("unknown material type")

// MaterialAttributes is the closed set of per-type connection attribute
// variants. The unexported method keeps the union closed to the five types
// declared in this package.
type MaterialAttributes interface {
	materialType() MaterialType
}

// GitAttributes describes a git material.
type GitAttributes struct {
	Name       string
	AutoUpdate bool
	URL        string
	Branch     string
}

func (GitAttributes) materialType() MaterialType { return MaterialTypeGit }

// SvnAttributes describes a Subversion material.
type SvnAttributes struct {
	Name           string
	AutoUpdate     bool
	URL            string
	CheckExternals bool
	Username       string
	Password       Secret
}

func (SvnAttributes) materialType() MaterialType { return MaterialTypeSvn }

// HgAttributes describes a Mercurial material.
type HgAttributes struct {
	Name       string
	AutoUpdate bool
	URL        string
}

func (HgAttributes) materialType() MaterialType { return MaterialTypeHg }

// P4Attributes describes a Perforce material. Port is the server:port pair of
// the Perforce server, and View is the client view mapping.
type P4Attributes struct {
	Name       string
	AutoUpdate bool
	Port       string
	UseTickets bool
	View       string
	Username   string
	Password   Secret
}

func (P4Attributes) materialType() MaterialType { return MaterialTypeP4 }

// TfsAttributes describes a Team Foundation Server material.
type TfsAttributes struct {
	Name        string
	AutoUpdate  bool
	URL         string
	Domain      string
	ProjectPath string
	Username    string
	Password    Secret
}

func (TfsAttributes) materialType() MaterialType { return MaterialTypeTfs }

// Material pairs a type tag with the attributes variant for that type.
// The two fields are kept consistent by construction: NewMaterial, SetType,
// and UnmarshalJSON all install an attributes value matching the tag.
type Material struct {
	Type       MaterialType
	Attributes MaterialAttributes
}

// NewMaterial returns a material of the given type with default attributes.
// Returns ErrUnknownMaterialType for an unrecognized tag.
func NewMaterial(t MaterialType) (Material, error) {
	attrs, err := DefaultAttributes(t)
	if err != nil {
		return Material{}, err
	}
	return Material{Type: t, Attributes: attrs}, nil
}

// DefaultAttributes returns a fresh attributes value with the defaults for t.
// Materials poll automatically unless configured otherwise, so AutoUpdate
// starts out true for every type.
func DefaultAttributes(t MaterialType) (MaterialAttributes, error) {
	switch t {
	case MaterialTypeGit:
		return GitAttributes{AutoUpdate: true, Branch: DefaultGitBranch}, nil
	case MaterialTypeSvn:
		return SvnAttributes{AutoUpdate: true}, nil
	case MaterialTypeHg:
		return HgAttributes{AutoUpdate: true}, nil
	case MaterialTypeP4:
		return P4Attributes{AutoUpdate: true}, nil
	case MaterialTypeTfs:
		return TfsAttributes{AutoUpdate: true}, nil
	default:
		return nil, fmt.Errorf("%q: %w", t, ErrUnknownMaterialType)
	}
}

// SetType switches the material to a new type. The old attributes object is
// discarded and replaced with the new type's defaults; attribute values are
// never shared across types. Setting the current type is a no-op.
func (m *Material) SetType(t MaterialType) error {
	if t == m.Type && m.Attributes != nil {
		return nil
	}

	attrs, err := DefaultAttributes(t)
	if err != nil {
		return err
	}

	m.Type = t
	m.Attributes = attrs
	return nil
}

// Validate checks that the material is internally consistent and carries the
// minimum connection settings for its type.
func (m Material) Validate() error {
	if m.Attributes == nil {
		return fmt.Errorf("material %q has no attributes", m.Type)
	}
	if got := m.Attributes.materialType(); got != m.Type {
		return fmt.Errorf("material type %q does not match attributes type %q", m.Type, got)
	}

	switch attrs := m.Attributes.(type) {
	case GitAttributes:
		if attrs.URL == "" {
			return errors.New("git material requires a url")
		}
	case SvnAttributes:
		if attrs.URL == "" {
			return errors.New("svn material requires a url")
		}
	case HgAttributes:
		if attrs.URL == "" {
			return errors.New("hg material requires a url")
		}
	case P4Attributes:
		if attrs.Port == "" {
			return errors.New("p4 material requires a port")
		}
		if attrs.View == "" {
			return errors.New("p4 material requires a view")
		}
	case TfsAttributes:
		if attrs.URL == "" {
			return errors.New("tfs material requires a url")
		}
		if attrs.ProjectPath == "" {
			return errors.New("tfs material requires a project_path")
		}
	}

	return nil
}

// materialWire is the tagged-union envelope on the wire.
type materialWire struct {
	Type       MaterialType    `json:"type"`
	Attributes json.RawMessage `json:"attributes"`
}

// Per-variant wire shapes. Attribute keys are snake_case on the wire; the
// password pair is emitted mutually exclusively via omitempty.
type gitWire struct {
	Name       string `json:"name"`
	AutoUpdate bool   `json:"auto_update"`
	URL        string `json:"url"`
	Branch     string `json:"branch"`
}

type svnWire struct {
	Name              string `json:"name"`
	AutoUpdate        bool   `json:"auto_update"`
	URL               string `json:"url"`
	CheckExternals    bool   `json:"check_externals"`
	Username          string `json:"username"`
	Password          string `json:"password,omitempty"`
	EncryptedPassword string `json:"encrypted_password,omitempty"`
}

type hgWire struct {
	Name       string `json:"name"`
	AutoUpdate bool   `json:"auto_update"`
	URL        string `json:"url"`
}

type p4Wire struct {
	Name              string `json:"name"`
	AutoUpdate        bool   `json:"auto_update"`
	Port              string `json:"port"`
	UseTickets        bool   `json:"use_tickets"`
	View              string `json:"view"`
	Username          string `json:"username"`
	Password          string `json:"password,omitempty"`
	EncryptedPassword string `json:"encrypted_password,omitempty"`
}

type tfsWire struct {
	Name              string `json:"name"`
	AutoUpdate        bool   `json:"auto_update"`
	URL               string `json:"url"`
	Domain            string `json:"domain"`
	ProjectPath       string `json:"project_path"`
	Username          string `json:"username"`
	Password          string `json:"password,omitempty"`
	EncryptedPassword string `json:"encrypted_password,omitempty"`
}

// MarshalJSON serializes the material as {"type": ..., "attributes": {...}}
// with the wire key mapping of the admin API.
func (m Material) MarshalJSON() ([]byte, error) {
	attrs, err := encodeAttributes(m.Attributes)
	if err != nil {
		return nil, err
	}

	return json.Marshal(materialWire{Type: m.Type, Attributes: attrs})
}

// UnmarshalJSON deserializes a material payload, dispatching on the type tag
// to the matching variant. Returns ErrUnknownMaterialType for an
// unrecognized tag and ErrConflictingPassword when a payload carries both
// password fields.
func (m *Material) UnmarshalJSON(data []byte) error {
	var w materialWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	attrs, err := decodeAttributes(w.Type, w.Attributes)
	if err != nil {
		return err
	}

	m.Type = w.Type
	m.Attributes = attrs
	return nil
}

func encodeAttributes(attrs MaterialAttributes) (json.RawMessage, error) {
	if attrs == nil {
		return nil, errors.New("material has no attributes")
	}

	switch a := attrs.(type) {
	case GitAttributes:
		return json.Marshal(gitWire{
			Name:       a.Name,
			AutoUpdate: a.AutoUpdate,
			URL:        a.URL,
			Branch:     a.Branch,
		})
	case SvnAttributes:
		password, encrypted := a.Password.wireFields()
		return json.Marshal(svnWire{
			Name:              a.Name,
			AutoUpdate:        a.AutoUpdate,
			URL:               a.URL,
			CheckExternals:    a.CheckExternals,
			Username:          a.Username,
			Password:          password,
			EncryptedPassword: encrypted,
		})
	case HgAttributes:
		return json.Marshal(hgWire{
			Name:       a.Name,
			AutoUpdate: a.AutoUpdate,
			URL:        a.URL,
		})
	case P4Attributes:
		password, encrypted := a.Password.wireFields()
		return json.Marshal(p4Wire{
			Name:              a.Name,
			AutoUpdate:        a.AutoUpdate,
			Port:              a.Port,
			UseTickets:        a.UseTickets,
			View:              a.View,
			Username:          a.Username,
			Password:          password,
			EncryptedPassword: encrypted,
		})
	case TfsAttributes:
		password, encrypted := a.Password.wireFields()
		return json.Marshal(tfsWire{
			Name:              a.Name,
			AutoUpdate:        a.AutoUpdate,
			URL:               a.URL,
			Domain:            a.Domain,
			ProjectPath:       a.ProjectPath,
			Username:          a.Username,
			Password:          password,
			EncryptedPassword: encrypted,
		})
	default:
		return nil, fmt.Errorf("%T: %w", attrs, ErrUnknownMaterialType)
	}
}

// decodeAttributes dispatches on the type tag to the matching variant's field
// mapping. Wire structs are pre-populated with the type's defaults so absent
// fields keep their default values rather than zeroing them.
func decodeAttributes(t MaterialType, raw json.RawMessage) (MaterialAttributes, error) {
	switch t {
	case MaterialTypeGit:
		w := gitWire{AutoUpdate: true, Branch: DefaultGitBranch}
		if err := unmarshalAttributes(raw, &w); err != nil {
			return nil, err
		}
		return GitAttributes{
			Name:       w.Name,
			AutoUpdate: w.AutoUpdate,
			URL:        w.URL,
			Branch:     w.Branch,
		}, nil

	case MaterialTypeSvn:
		w := svnWire{AutoUpdate: true}
		if err := unmarshalAttributes(raw, &w); err != nil {
			return nil, err
		}
		password, err := secretFromWire(w.Password, w.EncryptedPassword)
		if err != nil {
			return nil, err
		}
		return SvnAttributes{
			Name:           w.Name,
			AutoUpdate:     w.AutoUpdate,
			URL:            w.URL,
			CheckExternals: w.CheckExternals,
			Username:       w.Username,
			Password:       password,
		}, nil

	case MaterialTypeHg:
		w := hgWire{AutoUpdate: true}
		if err := unmarshalAttributes(raw, &w); err != nil {
			return nil, err
		}
		return HgAttributes{
			Name:       w.Name,
			AutoUpdate: w.AutoUpdate,
			URL:        w.URL,
		}, nil

	case MaterialTypeP4:
		w := p4Wire{AutoUpdate: true}
		if err := unmarshalAttributes(raw, &w); err != nil {
			return nil, err
		}
		password, err := secretFromWire(w.Password, w.EncryptedPassword)
		if err != nil {
			return nil, err
		}
		return P4Attributes{
			Name:       w.Name,
			AutoUpdate: w.AutoUpdate,
			Port:       w.Port,
			UseTickets: w.UseTickets,
			View:       w.View,
			Username:   w.Username,
			Password:   password,
		}, nil

	case MaterialTypeTfs:
		w := tfsWire{AutoUpdate: true}
		if err := unmarshalAttributes(raw, &w); err != nil {
			return nil, err
		}
		password, err := secretFromWire(w.Password, w.EncryptedPassword)
		if err != nil {
			return nil, err
		}
		return TfsAttributes{
			Name:        w.Name,
			AutoUpdate:  w.AutoUpdate,
			URL:         w.URL,
			Domain:      w.Domain,
			ProjectPath: w.ProjectPath,
			Username:    w.Username,
			Password:    password,
		}, nil

	default:
		return nil, fmt.Errorf("%q: %w", t, ErrUnknownMaterialType)
	}
}

// unmarshalAttributes fills dst from raw, treating an absent or null
// attributes object as "all fields absent".
func unmarshalAttributes(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
