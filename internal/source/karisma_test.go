package source

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crowdit/radscribe/internal/models"
)

func TestModalityNameToCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact match", "Ultrasound", "US"},
		{"exact multi-word", "Magnetic Resonance", "MR"},
		{"contains match", "Ultrasound - General", "US"},
		{"mri alias", "MRI", "MR"},
		{"ct", "CT", "CT"},
		{"short unknown uppercased", "opg", "OPG"},
		{"long unknown passthrough", "Interventional", "Interventional"},
		{"angiography", "Digital Angiography", "DSA"},
		{"dexa", "DEXA Bone Density", "BMD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModalityNameToCode(tt.in))
		})
	}
}

func TestSplitPractitionerName(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantGiven  string
		wantFamily string
	}{
		{"two parts", "Jane Nguyen", "Jane", "Nguyen"},
		{"middle names", "Jane Ann Nguyen", "Jane Ann", "Nguyen"},
		{"single token", "Nguyen", "", "Nguyen"},
		{"empty", "", "", ""},
		{"surrounding spaces", "  Jane Nguyen  ", "Jane", "Nguyen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			given, family := splitPractitionerName(tt.in)
			assert.Equal(t, tt.wantGiven, given)
			assert.Equal(t, tt.wantFamily, family)
		})
	}
}

func TestNullKeyString(t *testing.T) {
	assert.Equal(t, "", nullKeyString(sql.NullInt64{}))
	assert.Equal(t, "42", nullKeyString(sql.NullInt64{Int64: 42, Valid: true}))
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))

	visage, err := r.For(models.KindVisage)
	assert.NoError(t, err)
	assert.NotNil(t, visage)

	karisma, err := r.For(models.KindKarisma)
	assert.NoError(t, err)
	assert.NotNil(t, karisma)

	_, err = r.For("pacs")
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.ElementsMatch(t, []models.SourceKind{models.KindVisage, models.KindKarisma}, r.Kinds())
}
