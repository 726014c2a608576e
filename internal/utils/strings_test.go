package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"only whitespace and commas", " , ,", nil},
		{"single value", "SALE_RECORDED", []string{"SALE_RECORDED"}},
		{"varied spacing", "PRICE_UPDATED,  SALE_RECORDED ,PRODUCT_CREATED", []string{"PRICE_UPDATED", "SALE_RECORDED", "PRODUCT_CREATED"}},
		{"trailing comma", "a,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}
