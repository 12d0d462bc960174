package catalog

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"github.com/GriffinCanCode/WebDesk/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
)

// Format of a manifest document
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// maxManifestDepth bounds nesting in JSON manifests
const maxManifestDepth = 8

// helpPolicy keeps user-generated formatting and drops scripts, handlers
// and unknown elements
var helpPolicy = bluemonday.UGCPolicy()

// textPolicy strips all markup
var textPolicy = bluemonday.StrictPolicy()

// FormatFor guesses a format from a file name
func FormatFor(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseManifest decodes, sanitizes and validates a manifest document. With
// FormatAuto a document starting with '{' is JSON and anything else YAML.
func ParseManifest(data []byte, format Format) (*types.Manifest, error) {
	const op = "catalog.parseManifest"
	if err := utils.ValidateSize(data, utils.MaxManifestSize, "manifest"); err != nil {
		return nil, errs.Wrap(errs.KindValidation, op, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errs.Validation(op, "manifest is empty")
	}
	if format == FormatAuto {
		format = FormatYAML
		if trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var m types.Manifest
	switch format {
	case FormatJSON:
		if err := utils.ValidateJSONDepth(trimmed, maxManifestDepth); err != nil {
			return nil, errs.Wrap(errs.KindValidation, op, err)
		}
		if err := sonic.ConfigStd.Unmarshal(trimmed, &m); err != nil {
			return nil, errs.Wrap(errs.KindValidation, op, fmt.Errorf("invalid JSON manifest: %w", err))
		}
	case FormatYAML:
		if err := yaml.Unmarshal(trimmed, &m); err != nil {
			return nil, errs.Wrap(errs.KindValidation, op, fmt.Errorf("invalid YAML manifest: %w", err))
		}
	default:
		return nil, errs.Validation(op, fmt.Sprintf("unknown manifest format %q", format))
	}

	Sanitize(&m)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeManifest renders a manifest as JSON or YAML
func EncodeManifest(m *types.Manifest, format Format) ([]byte, error) {
	const op = "catalog.encodeManifest"
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(m)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, op, err)
		}
		return data, nil
	case FormatJSON, FormatAuto:
		data, err := sonic.ConfigStd.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, op, err)
		}
		return data, nil
	default:
		return nil, errs.Validation(op, fmt.Sprintf("unknown manifest format %q", format))
	}
}

// Sanitize cleans the display fields of m in place. Help keeps safe
// formatting; titles and descriptions become plain text.
func Sanitize(m *types.Manifest) {
	m.ID = strings.TrimSpace(m.ID)
	m.Entry = strings.TrimSpace(m.Entry)
	m.Title = SanitizeText(m.Title)
	m.Name = SanitizeText(m.Name)
	m.Description = SanitizeText(m.Description)
	m.Author = SanitizeText(m.Author)
	if m.Help != "" {
		m.Help = helpPolicy.Sanitize(m.Help)
	}
	if m.Permissions == nil {
		m.Permissions = []string{}
	}
}

// SanitizeText strips all markup from s and returns plain text
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
