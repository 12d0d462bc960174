package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Size limits (in bytes)
const (
	MaxManifestSize = 64 * 1024  // 64KB - manifest document size limit
	MaxSourceSize   = 512 * 1024 // 512KB - sandboxed module source limit
	MaxHelpSize     = 16 * 1024  // 16KB - sanitized help text limit
)

// String length limits
const (
	MaxUsernameLength    = 64
	MinUsernameLength    = 1
	MaxPasswordLength    = 128
	MaxIDLength          = 128
	MaxNameLength        = 256
	MaxDescriptionLength = 2048
	MaxPermissionLength  = 256
	MaxPermissionCount   = 64
)

// Regular expressions for validation
var (
	// AppIDPattern allows alphanumeric, dots, hyphens, underscores
	AppIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// UsernamePattern allows alphanumeric, dots, hyphens and underscores
	UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// PermissionPattern is dotted segments, optionally ending in a wildcard
	PermissionPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+(\.[a-zA-Z0-9_-]+)*(\.\*)?$`)
)

// ValidateSize checks that data does not exceed maxSize bytes
func ValidateSize(data []byte, maxSize int, fieldName string) error {
	if len(data) > maxSize {
		return fmt.Errorf("%s size %d bytes exceeds maximum %d bytes", fieldName, len(data), maxSize)
	}
	return nil
}

// ValidateJSONDepth checks that a decoded JSON value nests at most maxDepth levels
func ValidateJSONDepth(data []byte, maxDepth int) error {
	var v interface{}
	if err := sonic.ConfigStd.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return checkDepth(v, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateAppID validates an application id
func ValidateAppID(id string) error {
	if err := ValidateString(id, "id", 1, MaxIDLength, true); err != nil {
		return err
	}
	if !AppIDPattern.MatchString(id) || id == "." || id == ".." {
		return fmt.Errorf("id %q contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", id)
	}
	return nil
}

// ValidateUsername validates a username
func ValidateUsername(username string) error {
	if err := ValidateString(username, "username", MinUsernameLength, MaxUsernameLength, true); err != nil {
		return err
	}
	if !UsernamePattern.MatchString(username) || username == "." || username == ".." {
		return fmt.Errorf("username contains invalid characters")
	}
	return nil
}

// ValidatePassword validates a password
func ValidatePassword(password string) error {
	return ValidateString(password, "password", 1, MaxPasswordLength, true)
}

// ValidatePermissions validates a list of capability strings
func ValidatePermissions(perms []string) error {
	if len(perms) > MaxPermissionCount {
		return fmt.Errorf("too many permissions (maximum %d)", MaxPermissionCount)
	}
	for i, p := range perms {
		if err := ValidateString(p, fmt.Sprintf("permissions[%d]", i), 1, MaxPermissionLength, true); err != nil {
			return err
		}
		if !PermissionPattern.MatchString(p) {
			return fmt.Errorf("permissions[%d] %q is not a dotted capability", i, p)
		}
	}
	return nil
}

// ValidateName validates a name field
func ValidateName(name, fieldName string) error {
	return ValidateString(name, fieldName, 1, MaxNameLength, true)
}

// ValidateDescription validates a description field
func ValidateDescription(description, fieldName string) error {
	return ValidateString(description, fieldName, 0, MaxDescriptionLength, false)
}
