// Package errors renders RFC 7807 problem documents. The adoption backend puts
// its human-readable message in Detail; clients classify on it.
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// Message is the text a client shows: Detail, else Title.
func (p ProblemDetail) Message() string {
	if d := strings.TrimSpace(p.Detail); d != "" {
		return d
	}
	return strings.TrimSpace(p.Title)
}

// WithDetail returns a copy carrying the backend message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

const (
	TypeNotFound      = "/problems/not-found"
	TypeConflict      = "/problems/conflict"
	TypeInternal      = "/problems/internal-error"
	TypeUnauthorized  = "/problems/unauthorized"
	TypeForbidden     = "/problems/forbidden"
	TypeBadRequest    = "/problems/bad-request"
	TypeUnprocessable = "/problems/unprocessable-entity"
	// TypeBusinessRule is a refused request; the backend reuses 400 for every rule.
	TypeBusinessRule = "/problems/business-rule"
)

var (
	ErrNotFound      = ProblemDetail{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound}
	ErrBadRequest    = ProblemDetail{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest}
	ErrBusinessRule  = ProblemDetail{Type: TypeBusinessRule, Title: "Request Refused", Status: http.StatusBadRequest}
	ErrConflict      = ProblemDetail{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict}
	ErrInternal      = ProblemDetail{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}
	ErrUnauthorized  = ProblemDetail{Type: TypeUnauthorized, Title: "Unauthorized", Status: http.StatusUnauthorized}
	ErrForbidden     = ProblemDetail{Type: TypeForbidden, Title: "Forbidden", Status: http.StatusForbidden}
	ErrUnprocessable = ProblemDetail{Type: TypeUnprocessable, Title: "Unprocessable Entity", Status: http.StatusUnprocessableEntity}
)

var byStatus = map[int]ProblemDetail{
	http.StatusUnauthorized:        ErrUnauthorized,
	http.StatusForbidden:           ErrForbidden,
	http.StatusNotFound:            ErrNotFound,
	http.StatusConflict:            ErrConflict,
	http.StatusUnprocessableEntity: ErrUnprocessable,
	http.StatusInternalServerError: ErrInternal,
}

// Refusal builds the problem the backend answers with when it refuses a
// request. Statuses without a dedicated problem become business-rule 400s.
func Refusal(status int, message string) ProblemDetail {
	base, ok := byStatus[status]
	if !ok {
		base = ErrBusinessRule
	}
	return base.WithDetail(message)
}
