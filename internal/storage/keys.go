// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefixes of the keys this service writes itself.
const (
	ThemesPrefix  = "themes/"
	LibraryPrefix = "library/"
	ArchivePrefix = "archive/"
)

// Managed reports whether key lives under one of the service's own prefixes.
func Managed(key string) bool {
	return strings.HasPrefix(key, ThemesPrefix) ||
		strings.HasPrefix(key, LibraryPrefix) ||
		strings.HasPrefix(key, ArchivePrefix)
}

// ThemeAssetKey is the canonical key of a theme background:
// themes/{themeId}/bg/{epochMillis}_{filename}.
func ThemeAssetKey(themeID uuid.UUID, at time.Time, filename string) string {
	return fmt.Sprintf("%s%s/bg/%d_%s", ThemesPrefix, themeID, at.UnixMilli(), cleanFilename(filename))
}

// LibraryAssetKey is the key of a reusable library asset.
func LibraryAssetKey(assetID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s%s/%s", LibraryPrefix, assetID, cleanFilename(filename))
}

// cleanFilename keeps only the final path element of an uploaded name.
func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
