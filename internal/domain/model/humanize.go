package model

// attributeLabels maps wire attribute keys to the labels the admin widget
// shows next to each material field.
var attributeLabels = map[string]string{
	"name":               "Name",
	"auto_update":        "Auto-update",
	"url":                "URL",
	"branch":             "Branch",
	"check_externals":    "Check externals",
	"username":           "Username",
	"password":           "Password",
	"encrypted_password": "Password",
	"port":               "Port",
	"use_tickets":        "Use tickets",
	"view":               "View",
	"domain":             "Domain",
	"project_path":       "Project path",
}

// materialTypeNames maps type tags to their display names.
var materialTypeNames = map[MaterialType]string{
	MaterialTypeGit: "Git",
	MaterialTypeSvn: "Subversion",
	MaterialTypeHg:  "Mercurial",
	MaterialTypeP4:  "Perforce",
	MaterialTypeTfs: "Team Foundation Server",
}

// HumanizeAttributeKey returns the display label for a wire attribute key,
// falling back to the raw key when no label is known.
func HumanizeAttributeKey(wireKey string) string {
	if label, ok := attributeLabels[wireKey]; ok {
		return label
	}
	return wireKey
}

// HumanizeMaterialType returns the display name for a material type tag.
// Unknown tags come back unchanged so callers always get something printable.
func HumanizeMaterialType(t MaterialType) string {
	if name, ok := materialTypeNames[t]; ok {
		return name
	}
	return string(t)
}
