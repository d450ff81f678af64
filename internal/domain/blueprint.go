package domain

import "strings"

// ValidationError is a single problem reported for a blueprint.
type ValidationError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Blueprint is the remote view of a blueprint definition.
type Blueprint struct {
	Name        string            `json:"blueprint_name"`
	Description string            `json:"description,omitempty"`
	URL         string            `json:"url,omitempty"`
	Errors      []ValidationError `json:"errors,omitempty"`
}

// IsValid reports whether the service found no errors.
func (b *Blueprint) IsValid() bool {
	return len(b.Errors) == 0
}

// BlueprintSource selects the repository state a remote call reads from.
type BlueprintSource struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
}

// BlueprintSpec is the subset of a local blueprint definition the CLI reads.
type BlueprintSpec struct {
	Name      string
	Clouds    []string
	Services  map[string]any
	Artifacts map[string]string
	Inputs    map[string]string
}

// IsKubernetes reports whether any cloud is a cluster reference such as "aws/my-eks".
func (b *BlueprintSpec) IsKubernetes() bool {
	for _, cloud := range b.Clouds {
		if strings.Contains(cloud, "/") {
			return true
		}
	}
	return false
}

// IsTerraform reports whether the blueprint declares services.
func (b *BlueprintSpec) IsTerraform() bool {
	return len(b.Services) > 0
}
