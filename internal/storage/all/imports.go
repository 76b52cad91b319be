// Package all wires all built-in storage backends into the storage factory.
//
// It exists purely for side effects: importing it (even as a blank import)
// runs the init functions of each concrete backend, which register their
// factories with the storage package. Importing this package makes the
// following storage kinds available at runtime:
//
//   - "csv"      (marketing-etl/internal/storage/csvfile)
//   - "sqlite"   (marketing-etl/internal/storage/sqlite)
//   - "postgres" (marketing-etl/internal/storage/postgres)
//
// A binary that supports only a subset of backends can define an alternative
// wiring package importing just what it needs.
package all

import (
	_ "marketing-etl/internal/storage/csvfile"
	_ "marketing-etl/internal/storage/postgres"
	_ "marketing-etl/internal/storage/sqlite"
)
