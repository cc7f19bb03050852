package waitlist

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/akeren/caregiver-waitlist/internal/models"
	apperrors "github.com/akeren/caregiver-waitlist/pkg/errors"
)

const UnknownRequestValue = "unknown"

const (
	MessageFixErrors       = "Please fix the errors below"
	MessageAlreadyOnList   = "You're already on our waitlist! Check your email for updates."
	MessageEmailRegistered = "This email is already registered"
	MessageSomethingWrong  = "Something went wrong. Please try again."
	MessageJoinedWaitlist  = "You're on the waitlist!"
)

// FormFlag is a checkbox value. Browsers post "on" or omit the field; JSON
// clients may send a boolean instead.
type FormFlag string

func (f *FormFlag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FormFlag(strconv.FormatBool(b))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*f = FormFlag(s)
	return nil
}

// RawSubmission is the untrusted field set posted by the waitlist form.
type RawSubmission struct {
	Name      string   `form:"name" json:"name"`
	Email     string   `form:"email" json:"email"`
	Role      string   `form:"role" json:"role"`
	Challenge string   `form:"challenge" json:"challenge"`
	Consent   FormFlag `form:"consent" json:"consent"`
}

// RequestMeta is best-effort request context stored alongside an entry.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

func (m RequestMeta) withDefaults() RequestMeta {
	if strings.TrimSpace(m.IPAddress) == "" {
		m.IPAddress = UnknownRequestValue
	}
	if strings.TrimSpace(m.UserAgent) == "" {
		m.UserAgent = UnknownRequestValue
	}
	return m
}

type Outcome string

const (
	OutcomeSucceeded         Outcome = "succeeded"
	OutcomeValidationFailed  Outcome = "validation_failed"
	OutcomeDuplicateRejected Outcome = "duplicate_rejected"
	OutcomeStorageFailed     Outcome = "storage_failed"
)

// Completion is what the success page needs: the role and whether the optional
// fields were filled in. It never carries the values themselves.
type Completion struct {
	Role         string
	HasName      bool
	HasChallenge bool
}

func (c Completion) Query() url.Values {
	q := url.Values{}
	q.Set("role", c.Role)
	q.Set("name", strconv.FormatBool(c.HasName))
	q.Set("challenge", strconv.FormatBool(c.HasChallenge))
	return q
}

// RedirectURL appends the completion query to base, keeping any query
// parameters base already has.
func (c Completion) RedirectURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + c.Query().Encode()
	}

	q := u.Query()
	for key, values := range c.Query() {
		q[key] = values
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// SubmissionResult is the outcome of one submission as returned to the form.
type SubmissionResult struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message,omitempty"`
	Errors     apperrors.FieldErrors `json:"errors,omitempty"`
	Redirect   string                `json:"redirect,omitempty"`
	Outcome    Outcome               `json:"-"`
	Completion *Completion           `json:"-"`
}

type CountResponse struct {
	Count int `json:"count"`
}

func validationFailedResult(fieldErrors apperrors.FieldErrors) *SubmissionResult {
	return &SubmissionResult{
		Success: false,
		Message: MessageFixErrors,
		Errors:  fieldErrors,
		Outcome: OutcomeValidationFailed,
	}
}

func duplicateResult() *SubmissionResult {
	fieldErrors := apperrors.FieldErrors{}
	fieldErrors.Add("email", MessageEmailRegistered)

	return &SubmissionResult{
		Success: false,
		Message: MessageAlreadyOnList,
		Errors:  fieldErrors,
		Outcome: OutcomeDuplicateRejected,
	}
}

func storageFailedResult() *SubmissionResult {
	return &SubmissionResult{
		Success: false,
		Message: MessageSomethingWrong,
		Outcome: OutcomeStorageFailed,
	}
}

func succeededResult(entry *models.WaitlistEntry) *SubmissionResult {
	return &SubmissionResult{
		Success: true,
		Message: MessageJoinedWaitlist,
		Outcome: OutcomeSucceeded,
		Completion: &Completion{
			Role:         entry.Role,
			HasName:      entry.HasName(),
			HasChallenge: entry.HasChallenge(),
		},
	}
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryModel(form *WaitlistFormData, meta RequestMeta) *models.WaitlistEntry {
	if form == nil {
		return nil
	}

	meta = meta.withDefaults()

	return &models.WaitlistEntry{
		Name:      form.Name,
		Email:     form.Email,
		Role:      form.Role,
		Challenge: form.Challenge,
		Consent:   form.Consent,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
}
