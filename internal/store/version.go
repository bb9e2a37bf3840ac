package store

import (
	"github.com/Masterminds/semver/v3"

	"github.com/loomworks/loom/pkg/schema"
)

// ParseVersion validates a MAJOR.MINOR.PATCH version string.
// StrictNewVersion is used so "1.0" does not auto-complete to "1.0.0".
func ParseVersion(v string) (*semver.Version, error) {
	parsed, err := semver.StrictNewVersion(v)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid semantic version %q: %v", v, err).WithCause(err)
	}
	return parsed, nil
}

// latestVersion picks the template with the highest semantic version.
// Unparseable versions are skipped; returns nil when nothing qualifies.
func latestVersion(templates []*schema.WorkflowTemplate) *schema.WorkflowTemplate {
	var best *schema.WorkflowTemplate
	var bestVer *semver.Version
	for _, tpl := range templates {
		v, err := semver.StrictNewVersion(tpl.Version)
		if err != nil {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = tpl, v
		}
	}
	return best
}
