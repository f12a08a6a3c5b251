// Package data embeds the default game content.
package data

import "embed"

// FS holds the bundled content files (zones, npcs, abilities, items,
// skills, weather, druid and narratives).
//
//go:embed *.json *.yaml
var FS embed.FS
