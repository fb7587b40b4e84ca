package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Send your UPI id now", CategoryFinancialPhishing},
		{"share bank details to avoid closure", CategoryFinancialPhishing},
		{"You WON a prize in our lottery", CategoryPrize},
		{"Please confirm the OTP", CategoryOTP},
		{"account will be blocked tonight", CategoryAccountThreat},
		{"click this link to continue", CategoryPhishingLink},
		{"visit https://example.test", CategoryPhishingLink},
		{"hello how are you", CategoryGeneral},
		{"upi prize otp", CategoryFinancialPhishing},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.text))
		})
	}
}

func TestMoreSpecific(t *testing.T) {
	assert.True(t, MoreSpecific("", CategoryGeneral))
	assert.True(t, MoreSpecific(CategoryGeneral, CategoryPrize))
	assert.False(t, MoreSpecific(CategoryPrize, CategoryOTP), "first specific category sticks")
	assert.False(t, MoreSpecific(CategoryPrize, CategoryGeneral))
	assert.False(t, MoreSpecific(CategoryOTP, CategoryOTP))
	assert.False(t, MoreSpecific(CategoryOTP, ""))
}
