package waitlist

import (
	"strconv"
	"strings"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

const MaxChallengeLength = 500

const (
	MessageInvalidEmail     = "Please enter a valid email address"
	MessageRoleRequired     = "Please select your role"
	MessageRoleInvalid      = "Please select a valid role"
	MessageChallengeTooLong = "Please keep your response under 500 characters"
	MessageConsentRequired  = "You must agree to receive updates to join the waitlist"
)

var validate = validator.New()

// WaitlistFormData is a submission that passed validation. Name and Challenge
// are nil when the visitor left them blank.
type WaitlistFormData struct {
	Name      *string
	Email     string
	Role      string
	Challenge *string
	Consent   bool
}

// submissionSchema is the normalized shape checked by the validator. Its JSON
// names are the form field names used in error maps.
type submissionSchema struct {
	Name      string `json:"name"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,oneof=caregiver professional partner other"`
	Challenge string `json:"challenge" validate:"max=500"`
	Consent   bool   `json:"consent" validate:"required"`
}

var submissionMessages = apperrors.FieldMessages{
	"email": {"*": MessageInvalidEmail},
	"role": {
		"required": MessageRoleRequired,
		"oneof":    MessageRoleInvalid,
	},
	"challenge": {"*": MessageChallengeTooLong},
	"consent":   {"*": MessageConsentRequired},
}

// ValidateSubmission trims and normalizes raw form input and checks every
// field in one pass. On failure the returned FieldErrors lists each failing
// field with its messages and the form data is nil.
func ValidateSubmission(raw RawSubmission) (*WaitlistFormData, apperrors.FieldErrors) {
	schema := submissionSchema{
		Name:      normalizeText(raw.Name),
		Email:     strings.TrimSpace(raw.Email),
		Role:      strings.TrimSpace(raw.Role),
		Challenge: normalizeText(raw.Challenge),
		Consent:   parseConsent(string(raw.Consent)),
	}

	if fieldErrors := validateSchema(&schema); fieldErrors.HasErrors() {
		return nil, fieldErrors
	}

	return &WaitlistFormData{
		Name:      optional(schema.Name),
		Email:     schema.Email,
		Role:      schema.Role,
		Challenge: optional(schema.Challenge),
		Consent:   schema.Consent,
	}, nil
}

// ValidateEntry re-checks a stored entry against the submission rules.
func ValidateEntry(entry *models.WaitlistEntry) apperrors.FieldErrors {
	if entry == nil {
		fieldErrors := apperrors.FieldErrors{}
		fieldErrors.Add("email", MessageInvalidEmail)
		return fieldErrors
	}

	schema := submissionSchema{
		Email:   entry.Email,
		Role:    entry.Role,
		Consent: entry.Consent,
	}
	if entry.Name != nil {
		schema.Name = *entry.Name
	}
	if entry.Challenge != nil {
		schema.Challenge = *entry.Challenge
	}

	return validateSchema(&schema)
}

func validateSchema(schema *submissionSchema) apperrors.FieldErrors {
	if err := validate.Struct(schema); err != nil {
		return apperrors.FormatFieldErrors(err, schema, submissionMessages)
	}

	return apperrors.FieldErrors{}
}

// normalizeText trims and applies NFC so the challenge limit counts what the
// visitor sees rather than decomposed code points.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// parseConsent accepts the checkbox value "on" and anything strconv treats as true.
func parseConsent(raw string) bool {
	v := strings.TrimSpace(raw)
	if strings.EqualFold(v, "on") {
		return true
	}

	parsed, err := strconv.ParseBool(v)
	return err == nil && parsed
}
