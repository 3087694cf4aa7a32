package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vyvozim/hauling-backend/internal/models"
)

// Константы валидации
const (
	MinNameLength        = 2
	MaxNameLength        = 100
	MaxCityLength        = 100
	MaxStreetLength      = 150
	MaxHouseNumberLength = 20
	MaxCommentLength     = 1000
	MaxSubjectLength     = 200
	MinDescriptionLength = 5
	MaxDescriptionLength = 5000
	MaxMessageLength     = 5000
	MaxVehicleNumber     = 20
)

// phoneRegexp допускает номера в формате +7XXXXXXXXXX или 8XXXXXXXXXX.
var phoneRegexp = regexp.MustCompile(`^(\+7|8)\d{10}$`)

// scheduledTimeRegexp время подачи в формате HH:MM.
var scheduledTimeRegexp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidatePhone проверяет формат номера телефона.
func ValidatePhone(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("номер телефона обязателен")
	}
	if !phoneRegexp.MatchString(phone) {
		return fmt.Errorf("номер телефона должен быть в формате +7XXXXXXXXXX")
	}
	return nil
}

// NormalizePhone приводит номер к каноническому виду +7XXXXXXXXXX.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "8") && len(phone) == 11 {
		return "+7" + phone[1:]
	}
	return phone
}

// ValidateName проверяет имя пользователя.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("имя обязательно")
	}
	return ValidateLength("имя", name, MinNameLength, MaxNameLength)
}

// ValidateVehicleCapacity проверяет, что вместимость входит в допустимый набор.
func ValidateVehicleCapacity(capacity int) error {
	if _, ok := models.ValidVehicleCapacities[capacity]; !ok {
		return fmt.Errorf("вместимость должна быть 3, 5 или 10 кубометров")
	}
	return nil
}

// ValidateVehicleNumber проверяет госномер машины.
func ValidateVehicleNumber(number string) error {
	if strings.TrimSpace(number) == "" {
		return fmt.Errorf("номер машины обязателен")
	}
	return ValidateLength("номер машины", number, 0, MaxVehicleNumber)
}

// ValidateAddressField проверяет одно поле адреса.
func ValidateAddressField(fieldName, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s обязателен", fieldName)
	}
	return ValidateLength(fieldName, value, 0, max)
}

// ValidateScheduledTime проверяет время подачи в формате HH:MM.
func ValidateScheduledTime(value string) error {
	if !scheduledTimeRegexp.MatchString(value) {
		return fmt.Errorf("время подачи должно быть в формате HH:MM")
	}
	return nil
}

// ValidateScheduledDate проверяет, что дата подачи не в прошлом.
// Для срочных заказов дата штампуется сервером и не проверяется.
func ValidateScheduledDate(date time.Time, now time.Time) error {
	if date.Before(now.Truncate(24 * time.Hour)) {
		return fmt.Errorf("дата подачи не может быть в прошлом")
	}
	return nil
}

// ValidateComment проверяет комментарий к заказу.
func ValidateComment(comment string) error {
	return ValidateLength("комментарий", comment, 0, MaxCommentLength)
}

// ValidateTicketSubject проверяет тему обращения.
func ValidateTicketSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("тема обращения обязательна")
	}
	return ValidateLength("тема обращения", subject, 0, MaxSubjectLength)
}

// ValidateTicketDescription проверяет описание обращения.
func ValidateTicketDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("описание обращения обязательно")
	}
	return ValidateLength("описание обращения", description, MinDescriptionLength, MaxDescriptionLength)
}

// ValidateMessageContent проверяет текст сообщения в тикете.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("текст сообщения обязателен")
	}
	return ValidateLength("текст сообщения", content, 1, MaxMessageLength)
}
