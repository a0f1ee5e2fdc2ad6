package problemdetails

import "fmt"

const baseTypeURI = "https://api.example.com/problems/"

const (
	TypeInvalidRequest     = "invalid-request"
	TypeMissingField       = "missing-field"
	TypeInvalidURL         = "invalid-url"
	TypeInvalidCode        = "invalid-shortcode"
	TypeInvalidExpiry      = "invalid-expiry"
	TypeConflict           = "shortcode-taken"
	TypeNotFound           = "not-found"
	TypeExpired            = "expired"
	TypeStorageUnavailable = "storage-unavailable"
	TypeInternalError      = "internal-error"
	TypeValidationError    = "validation-error"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ProblemDetail struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

func New(status int, problemType, title, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   fmt.Sprintf("%s%s", baseTypeURI, problemType),
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// NewValidation reports malformed request fields.
func NewValidation(errors []FieldError) *ProblemDetail {
	return &ProblemDetail{
		Type:   fmt.Sprintf("%s%s", baseTypeURI, TypeValidationError),
		Title:  "Validation Failed",
		Status: 400,
		Detail: "Request validation failed",
		Errors: errors,
	}
}

// WithInstance sets the request path the problem occurred on.
func (p *ProblemDetail) WithInstance(path string) *ProblemDetail {
	p.Instance = path
	return p
}
