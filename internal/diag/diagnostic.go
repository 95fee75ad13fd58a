package diag

import (
	"errors"
)

// Diagnostic is the flattened, serialisable form of a build error handed to
// callers of the build.
type Diagnostic struct {
	Kind     Kind   `json:"kind"`
	ModuleID string `json:"moduleId,omitempty"`
	PluginID string `json:"pluginId,omitempty"`
	Hook     string `json:"hook,omitempty"`
	Message  string `json:"message"`
}

// From converts any error into a Diagnostic. Errors outside the taxonomy are
// reported with an empty kind.
func From(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}

	var de *Error
	if !errors.As(err, &de) {
		return Diagnostic{Message: err.Error()}
	}

	d := Diagnostic{
		Kind:     de.Kind,
		PluginID: de.PluginID,
		Hook:     de.Hook,
		Message:  de.Error(),
	}
	if !de.ModuleID.IsZero() {
		d.ModuleID = de.ModuleID.String()
	}
	return d
}
