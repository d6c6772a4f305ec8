package model

import "time"

// ConfigRepo is a registered source-control location whose contents are
// parsed by a plugin into pipeline configuration. The plugin is referenced
// only by its opaque id; Configuration holds plugin-specific settings the
// registry does not interpret.
type ConfigRepo struct {
	ID            string
	PluginID      string
	Material      Material
	Configuration []ConfigurationProperty

	// LastParse is nil when the repo has never been parsed. That state is
	// distinct from a parse that succeeded with no changes.
	LastParse *LastParse

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConfigurationProperty is one opaque plugin-specific key/value setting.
type ConfigurationProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LastParse records the outcome of the most recent attempt to read
// configuration from a repo. On failure, Revision holds the last revision
// that was successfully seen, if any.
type LastParse struct {
	Revision string
	Success  bool
	Error    string
	ParsedAt time.Time
}
