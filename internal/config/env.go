package config

import "github.com/farxc/cuipo/internal/env"

// FromEnv loads the catalog named by CATALOG_FILE and applies the DB_SCHEMA,
// WORKING_TABLE, SNAPSHOT_TABLE and USERS_SCHEMA overrides on top.
func FromEnv() (Catalog, error) {
	c, err := Load(env.GetString("CATALOG_FILE", ""))
	if err != nil {
		return Catalog{}, err
	}

	c.Schema = env.GetString("DB_SCHEMA", c.Schema)
	c.WorkingTable = env.GetString("WORKING_TABLE", c.WorkingTable)
	c.SnapshotTable = env.GetString("SNAPSHOT_TABLE", c.SnapshotTable)
	c.Users.Schema = env.GetString("USERS_SCHEMA", c.Users.Schema)
	return c, c.Validate()
}
