package tokobot

import "embed"

// MigrationsFS holds the SQL migrations for every supported database dialect,
// one directory per dialect under migrations/.
//
//go:embed migrations
var MigrationsFS embed.FS
