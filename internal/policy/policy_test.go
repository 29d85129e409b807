package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-ledger-api/internal/models"
)

func TestCanSubmit(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name      string
		center    models.Center
		space     string
		submitter string
		allowed   bool
	}{
		{"center coordinator", models.CenterCalleBelen, models.GeneralSpace, "Natasha Carrari", true},
		{"absent from center list", models.CenterCalleBelen, models.GeneralSpace, "Camila Prada", false},
		{"no case folding", models.CenterCalleBelen, models.GeneralSpace, "natasha carrari", false},
		{"no partial match", models.CenterNudoANudo, models.GeneralSpace, "Camila", false},
		{"space list member", models.CenterCasaMaranatha, "FINES", "Guillermina Cazenave", true},
		{"center coordinator outside space list", models.CenterCasaMaranatha, "FINES", "Florencia", false},
		{"subdivided center without space", models.CenterCasaMaranatha, "", "Florencia", false},
		{"subdivided center with general space", models.CenterCasaMaranatha, models.GeneralSpace, "Florencia", false},
		{"unknown space", models.CenterCasaMaranatha, "Cocina", "Florencia", false},
		{"unknown center", models.Center("Centro Norte"), models.GeneralSpace, "Julieta", false},
		{"empty submitter", models.CenterNudoANudo, models.GeneralSpace, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.CanSubmit(tt.center, tt.space, tt.submitter)
			assert.Equal(t, tt.allowed, got.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}

func TestDefaultTableShape(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.Equal(t, models.KnownCenters, table.Centers())
	assert.True(t, table.Subdivided(models.CenterCasaMaranatha))
	assert.False(t, table.Subdivided(models.CenterCalleBelen))
	assert.Nil(t, table.Spaces(models.CenterNudoANudo))
	assert.Equal(t, []string{
		"Taller de costura", "Apoyo escolar primaria", "Apoyo escolar secundaria",
		"FINES", "Espacio Joven", "La Ronda", "Otros",
	}, table.Spaces(models.CenterCasaMaranatha))
	assert.Equal(t, []string{
		"Camila Prada", "Julieta", "Florencia", "Guillermina Cazenave",
		"Natasha Carrari", "Estefanía Eberle", "Martín Pérez Santellán",
	}, table.Coordinators())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"not yaml", "centers: [::"},
		{"missing name", "centers:\n  - coordinators: [a]\n"},
		{"duplicate center", "centers:\n  - name: A\n  - name: A\n"},
		{"duplicate space", "centers:\n  - name: A\n    spaces:\n      - name: x\n      - name: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_FileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("centers:\n  - name: Nudo a Nudo\n    coordinators: [Ana]\n"), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	assert.True(t, table.CanSubmit(models.CenterNudoANudo, models.GeneralSpace, "Ana").Allowed)
	assert.False(t, table.CanSubmit(models.CenterNudoANudo, models.GeneralSpace, "Julieta").Allowed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
