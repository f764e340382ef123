// Package all registers every built-in storage backend with the storage
// factory. Import it for side effects:
//
//	import _ "roas/internal/storage/all"
//
// after which storage.New accepts "postgres", "mssql" and "sqlite".
package all

import (
	_ "roas/internal/storage/mssql"
	_ "roas/internal/storage/postgres"
	_ "roas/internal/storage/sqlite"
)
