// Package appfs embeds the files the binaries need at runtime: database migrations and templates.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
