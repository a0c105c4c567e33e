package migrations

import (
	"git.carhub.se/carhub/carhub/src/migration/types"
)

var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	if _, exists := All[m.Version()]; exists {
		panic("duplicate migration version: " + m.Version().String())
	}
	All[m.Version()] = m
}
