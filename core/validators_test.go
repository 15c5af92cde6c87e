package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotKind int

func (k slotKind) IsValid() bool { return k >= 0 && k < 3 }

type testSlot struct {
	Weekday int      `json:"weekday" validate:"weekday"`
	Country string   `json:"country" validate:"omitempty,country_code"`
	Kind    slotKind `json:"kind" validate:"enum"`
	Name    string   `json:"name" validate:"omitempty,notblank"`
}

func TestInitValidators(t *testing.T) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)

	tests := []struct {
		name      string
		slot      testSlot
		wantField string
		wantText  string
	}{
		{name: "valid", slot: testSlot{Weekday: 6, Country: "es", Kind: 2}},
		{name: "monday", slot: testSlot{Weekday: 0, Country: "PT"}},
		{name: "negative weekday", slot: testSlot{Weekday: -1}, wantField: "weekday", wantText: weekdayText},
		{name: "weekday after sunday", slot: testSlot{Weekday: 7}, wantField: "weekday", wantText: weekdayText},
		{name: "three letter country", slot: testSlot{Country: "ESP"}, wantField: "country", wantText: countryCodeText},
		{name: "country with digits", slot: testSlot{Country: "p1"}, wantField: "country", wantText: countryCodeText},
		{name: "unknown kind", slot: testSlot{Kind: 3}, wantField: "kind", wantText: enumText},
		{name: "blank name", slot: testSlot{Name: "  "}, wantField: "name", wantText: notBlankText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.slot)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tt.wantField, vErrs[0].Field())
			assert.Equal(t, tt.wantText, vErrs[0].Translate(translator))
		})
	}
}
