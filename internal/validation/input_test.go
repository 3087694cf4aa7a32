package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("+79991234567"))
	assert.NoError(t, ValidatePhone("89991234567"))
	assert.NoError(t, ValidatePhone("  +79991234567  "))

	assert.Error(t, ValidatePhone(""))
	assert.Error(t, ValidatePhone("79991234567"))
	assert.Error(t, ValidatePhone("+7999123456"))
	assert.Error(t, ValidatePhone("+799912345678"))
	assert.Error(t, ValidatePhone("+7999123456a"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+79991234567", NormalizePhone("89991234567"))
	assert.Equal(t, "+79991234567", NormalizePhone("+79991234567"))
	assert.Equal(t, "+79991234567", NormalizePhone("  89991234567  "))
}

func TestValidateVehicleCapacity(t *testing.T) {
	assert.NoError(t, ValidateVehicleCapacity(3))
	assert.NoError(t, ValidateVehicleCapacity(5))
	assert.NoError(t, ValidateVehicleCapacity(10))

	assert.Error(t, ValidateVehicleCapacity(0))
	assert.Error(t, ValidateVehicleCapacity(4))
	assert.Error(t, ValidateVehicleCapacity(-3))
}

func TestValidateScheduledTime(t *testing.T) {
	assert.NoError(t, ValidateScheduledTime("00:00"))
	assert.NoError(t, ValidateScheduledTime("09:30"))
	assert.NoError(t, ValidateScheduledTime("23:59"))

	assert.Error(t, ValidateScheduledTime("24:00"))
	assert.Error(t, ValidateScheduledTime("12:60"))
	assert.Error(t, ValidateScheduledTime("9:30"))
	assert.Error(t, ValidateScheduledTime("12-30"))
	assert.Error(t, ValidateScheduledTime(""))
}

func TestValidateScheduledDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	assert.NoError(t, ValidateScheduledDate(now, now))
	assert.NoError(t, ValidateScheduledDate(now.Add(24*time.Hour), now))
	// сегодняшняя дата в полночь не считается прошлым
	assert.NoError(t, ValidateScheduledDate(now.Truncate(24*time.Hour), now))

	assert.Error(t, ValidateScheduledDate(now.Add(-48*time.Hour), now))
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("поле", "abc", 2, 5))
	assert.Error(t, ValidateLength("поле", "a", 2, 5))
	assert.Error(t, ValidateLength("поле", "abcdef", 2, 5))

	// длина считается в рунах, не в байтах
	assert.NoError(t, ValidateLength("поле", "привет", 2, 6))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Иван"))
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName("   "))
	assert.Error(t, ValidateName("И"))
	assert.Error(t, ValidateName(strings.Repeat("а", MaxNameLength+1)))
}

func TestValidateTicketDescription(t *testing.T) {
	assert.NoError(t, ValidateTicketDescription("не вывезли мусор"))
	assert.Error(t, ValidateTicketDescription(""))
	assert.Error(t, ValidateTicketDescription("аб"))
	assert.Error(t, ValidateTicketDescription(strings.Repeat("а", MaxDescriptionLength+1)))
}

func TestValidateAddressField(t *testing.T) {
	assert.NoError(t, ValidateAddressField("город", "Москва", MaxCityLength))
	assert.Error(t, ValidateAddressField("город", "", MaxCityLength))
	assert.Error(t, ValidateAddressField("город", "  ", MaxCityLength))
	assert.Error(t, ValidateAddressField("город", strings.Repeat("а", MaxCityLength+1), MaxCityLength))
}
