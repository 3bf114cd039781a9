package validate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/claimguard/internal/model"
)

func fieldsOf(issues []Issue) []string {
	var fields []string
	for _, i := range issues {
		fields = append(fields, i.Field)
	}
	return fields
}

func TestNormalize_CleanClaim(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	claim := model.Claim{
		ID:          " c-1 ",
		UserID:      "u-1",
		Merchant:    " FitZone Gym",
		Amount:      250,
		ServiceDate: day,
		SubmittedAt: day,
		Items:       []string{"membership", "  ", " towel "},
		ContentHash: "ABC123",
	}

	got, issues := Normalize(claim)

	assert.Empty(t, issues)
	assert.Equal(t, "c-1", got.ID)
	assert.Equal(t, "FitZone Gym", got.Merchant)
	assert.Equal(t, []string{"membership", "towel"}, got.Items)
}

func TestNormalize_DegradesInvalidFields(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantAmount float64
	}{
		{"NaN", math.NaN(), 0},
		{"Inf", math.Inf(1), 0},
		{"negative", -12.5, 0},
		{"valid", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Normalize(model.Claim{ID: "c", Amount: tt.amount})
			assert.Equal(t, tt.wantAmount, got.Amount)
		})
	}
}

func TestNormalize_ReportsMissingFields(t *testing.T) {
	_, issues := Normalize(model.Claim{})

	assert.ElementsMatch(t,
		[]string{"id", "user_id", "merchant", "service_date", "submitted_at", "content_hash"},
		fieldsOf(issues),
	)
	for _, i := range issues {
		assert.Equal(t, IssueMissing, i.Kind)
		assert.NotEmpty(t, i.String())
	}
}
