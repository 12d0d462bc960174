// Package catalog keeps the locally installed applications and developer
// drafts in the persisted store.
//
// Manifests are accepted as JSON or YAML. Display fields are reduced to
// plain text and help content is sanitized before anything is stored, so a
// manifest in the catalog is always valid for launch.
package catalog
