package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, `"sis_cuipo"."cuipo_plantilla_distrito_2025_vf"`, c.Working())
	assert.Equal(t, `"sis_cuipo"."base_de_ejecucion_presupuestal_31032025"`, c.Snapshot())
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `
schema: cuipo_2026
snapshot_table: base_de_ejecucion_presupuestal_30062026
proyectos:
  table: proyectos_2026
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cuipo_2026", c.Schema)
	assert.Equal(t, "base_de_ejecucion_presupuestal_30062026", c.SnapshotTable)
	assert.Equal(t, "cuipo_plantilla_distrito_2025_vf", c.WorkingTable)
	assert.Equal(t, "proyectos_2026", c.Proyectos.Table)
	assert.Equal(t, "p", c.Proyectos.Key)
	assert.Equal(t, []string{"distrito_m1", "nombre_proyecto"}, c.Proyectos.Values)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestValidateRejectsInjection(t *testing.T) {
	c := Default()
	c.WorkingTable = `x"; DROP TABLE y; --`
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "working_table")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CATALOG_FILE", "")
	t.Setenv("DB_SCHEMA", "cuipo_2026")
	t.Setenv("SNAPSHOT_TABLE", "base_30062026")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, `"cuipo_2026"."base_30062026"`, c.Snapshot())
	assert.Equal(t, "cuipo_plantilla_distrito_2025_vf", c.WorkingTable)
	assert.Equal(t, "sis_catastro_verificacion", c.Users.Schema)
}

func TestFromEnvRejectsBadIdentifier(t *testing.T) {
	t.Setenv("CATALOG_FILE", "")
	t.Setenv("WORKING_TABLE", "plantilla; DROP TABLE x")

	_, err := FromEnv()
	assert.Error(t, err)
}
