package utils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
)

var CountryCode = "IN"

const DateLayout = "2006-01-02"

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

func IsValidEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

// IsValidGSTIN checks the 15 character GSTIN layout (state code, PAN, entity, Z, checksum char).
func IsValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(gstin)))
}

// GSTINStateCode returns the two digit state code of a GSTIN, or "".
func GSTINStateCode(gstin string) string {
	if !IsValidGSTIN(gstin) {
		return ""
	}
	return gstin[:2]
}

// ValidateGSTINField is registered with gin's validator engine as the "gstin" tag.
func ValidateGSTINField(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || IsValidGSTIN(v)
}

// FormatPhoneNumber normalises to E.164 (+91...).
func FormatPhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func UniqueSlice[T comparable](slice []T) []T {
	keys := make(map[T]bool)
	list := []T{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// ParseDate accepts yyyy-mm-dd. Empty input returns a zero time and no error.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, NewValidationMessage("date", "expected yyyy-mm-dd")
	}
	return t, nil
}

// TruncateDay drops the clock part. The calendar day is taken in the
// server's zone so a request sent with a different offset lands on the same day.
func TruncateDay(t time.Time) time.Time {
	t = t.In(time.Local)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WithRedisLock runs fn while holding a redislock on key. Without redis the function runs unlocked;
// database row locks still serialise writers inside a single instance.
func WithRedisLock(ctx context.Context, key string, moduleName string, functionName string, fn func() error) error {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		return fn()
	}
	lock, err := locker.Obtain(ctx, key, config.PostingLockTTL(), &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		config.LogError(logger, moduleName, functionName, "could not obtain lock", key, err)
		return fmt.Errorf("%s: %w", key, ErrLockBusy)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "error obtaining lock", key, err)
		return err
	}
	defer func() {
		_ = lock.Release(context.Background())
	}()

	return fn()
}
