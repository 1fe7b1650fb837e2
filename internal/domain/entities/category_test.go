package entities_test

import (
	"testing"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestDeriveCategory(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  entities.Category
	}{
		{"pharmacy beats clinic", []string{"pharmacy", "clinic"}, entities.CategoryPharmacy},
		{"empty falls back to hospital", []string{}, entities.CategoryHospital},
		{"nil falls back to hospital", nil, entities.CategoryHospital},
		{"case insensitive", []string{"HOSPITAL"}, entities.CategoryHospital},
		{"drugstore is pharmacy", []string{"drugstore"}, entities.CategoryPharmacy},
		{"physician beats clinic", []string{"physician", "clinic"}, entities.CategoryDoctor},
		{"doctor beats hospital", []string{"hospital", "doctor"}, entities.CategoryDoctor},
		{"health is clinic", []string{"point_of_interest", "health"}, entities.CategoryClinic},
		{"unknown tags fall back", []string{"establishment", "point_of_interest"}, entities.CategoryHospital},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entities.DeriveCategory(tt.types))
		})
	}
}

func TestParseCategories_DropsUnknownValues(t *testing.T) {
	got := entities.ParseCategories([]string{"Hospital", "spa", "pharmacy", " hospital ", ""})
	assert.Equal(t, []entities.Category{entities.CategoryHospital, entities.CategoryPharmacy}, got)

	assert.Empty(t, entities.ParseCategories([]string{"dentist"}))
}
