package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/configpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ConfigRepoRequest is the JSON body for the create and update endpoints.
// The material field goes through the Material wire codec, so unknown type
// tags and conflicting password fields are rejected during decode.
type ConfigRepoRequest struct {
	ID            string                        `json:"id"`
	PluginID      string                        `json:"plugin_id"`
	Material      model.Material                `json:"material"`
	Configuration []model.ConfigurationProperty `json:"configuration"`
}

// ConfigRepoResponse is the JSON representation of a config repo.
type ConfigRepoResponse struct {
	ID            string                        `json:"id"`
	PluginID      string                        `json:"plugin_id"`
	Material      model.Material                `json:"material"`
	Configuration []model.ConfigurationProperty `json:"configuration"`

	// LastParse is omitted entirely when the repo has never been parsed.
	LastParse *LastParseResponse `json:"last_parse,omitempty"`
}

// ConfigReposResponse is the JSON representation of the list endpoint.
type ConfigReposResponse struct {
	ConfigRepos []ConfigRepoResponse `json:"config_repos"`
}

// LastParseResponse is the JSON representation of a repo's most recent parse
// outcome. ErrorHTML carries the error rendered to sanitized HTML for the
// admin widget; plugins emit markdown-formatted failure messages.
type LastParseResponse struct {
	Revision  string `json:"revision"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorHTML string `json:"error_html,omitempty"`
	ParsedAt  string `json:"parsed_at"`
}

// MessageResponse is a plain informational response body.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toConfigRepoResponse converts a domain ConfigRepo to its JSON response
// representation. The material is embedded as-is: its own codec produces the
// wire shape, including the encrypted_password-only convention for stored
// secrets.
func toConfigRepoResponse(repo model.ConfigRepo) ConfigRepoResponse {
	configuration := repo.Configuration
	if configuration == nil {
		configuration = []model.ConfigurationProperty{}
	}

	return ConfigRepoResponse{
		ID:            repo.ID,
		PluginID:      repo.PluginID,
		Material:      repo.Material,
		Configuration: configuration,
		LastParse:     toLastParseResponse(repo.LastParse),
	}
}

// toLastParseResponse converts a domain LastParse to its JSON representation.
// Returns nil for a repo that has never been parsed.
func toLastParseResponse(lastParse *model.LastParse) *LastParseResponse {
	if lastParse == nil {
		return nil
	}

	return &LastParseResponse{
		Revision:  lastParse.Revision,
		Success:   lastParse.Success,
		Error:     lastParse.Error,
		ErrorHTML: RenderMarkdown(lastParse.Error),
		ParsedAt:  lastParse.ParsedAt.UTC().Format(time.RFC3339),
	}
}
