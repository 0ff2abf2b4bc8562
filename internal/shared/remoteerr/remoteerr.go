// Package remoteerr classifies failures reported by the adoption backend.
//
// The backend does not expose typed error codes; its messages are free text that
// varies between endpoints and languages. Every remote call made by the client is
// passed through Classify or FromTransport so the rest of the module reasons about
// a closed set of kinds and never matches message text directly.
package remoteerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is the closed set of failure categories understood by the engine.
type Kind int

const (
	KindUnknown Kind = iota
	KindSession
	KindValidation
	KindConflict
	KindSelfAction
	KindHistoryBlock
	KindDelivery
	KindTransient
	KindNotFound
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSession:
		return "session"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindSelfAction:
		return "self_action"
	case KindHistoryBlock:
		return "history_block"
	case KindDelivery:
		return "delivery"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Retryable reports whether the caller may offer a plain retry.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindDelivery || k == KindUnknown
}

// Error is a classified remote failure.
type Error struct {
	Op      string
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on a bare kind sentinel such as ErrSession.
func (e *Error) Is(target error) bool {
	var k kindSentinel
	if errors.As(target, &k) {
		return e.Kind == Kind(k)
	}
	return false
}

type kindSentinel Kind

func (k kindSentinel) Error() string { return Kind(k).String() }

// Sentinels usable with errors.Is against any *Error.
var (
	ErrSession      error = kindSentinel(KindSession)
	ErrConflict     error = kindSentinel(KindConflict)
	ErrSelfAction   error = kindSentinel(KindSelfAction)
	ErrHistoryBlock error = kindSentinel(KindHistoryBlock)
	ErrNotFound     error = kindSentinel(KindNotFound)
	ErrTransient    error = kindSentinel(KindTransient)
	ErrCanceled     error = kindSentinel(KindCanceled)
)

// New builds a classified error with an explicit kind.
func New(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// KindOf extracts the kind of err. Unclassified errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

// MessageOf returns the raw server message carried by err, falling back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var re *Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}

type rule struct {
	kind     Kind
	patterns []string
}

// Ordering matters: history and self-action messages often also contain
// "already", so they are checked before the generic conflict patterns.
var rules = []rule{
	{KindSession, []string{"token expirado", "token invalido", "sessao expirada", "token expired", "invalid token", "session expired", "nao autenticado", "unauthenticated"}},
	{KindHistoryBlock, []string{"ja foi seu", "ja pertenceu", "adotou anteriormente", "historico de adocao", "previously adopted", "previously owned", "readoption", "re-adoption", "readopt"}},
	{KindSelfAction, []string{"proprio pet", "proprio animal", "your own pet", "own pet", "self adoption", "self-adoption", "cannot adopt yourself"}},
	{KindConflict, []string{"ja existe", "ja cadastrado", "ja adotado", "ja esta", "duplicad", "already exists", "already added", "already adopted", "duplicate"}},
	{KindDelivery, []string{"falha ao enviar", "email nao enviado", "delivery failed", "could not deliver", "bounce", "smtp"}},
	{KindValidation, []string{"obrigator", "invalido", "required", "invalid", "must not be empty"}},
	{KindNotFound, []string{"nao encontrado", "not found"}},
	{KindTransient, []string{"timeout", "tempo esgotado", "temporarily", "unavailable", "network", "connection reset"}},
}

// Classify maps an HTTP status and backend message to a classified error.
// Message patterns win over the status because the backend reuses 400 for
// every business failure; the status only decides when no pattern matches.
func Classify(op string, status int, message string) *Error {
	e := &Error{Op: op, Status: status, Message: strings.TrimSpace(message)}
	folded := fold(message)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(folded, p) {
				e.Kind = r.kind
				return e
			}
		}
	}
	e.Kind = kindFromStatus(status)
	return e
}

// Matched reports whether the classification came from a known message pattern.
func Matched(message string) bool {
	folded := fold(message)
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(folded, p) {
				return true
			}
		}
	}
	return false
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindSession
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return KindTransient
	case status >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindUnknown
	}
}

// FromTransport classifies an error raised before any HTTP response was read.
func FromTransport(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	e := &Error{Op: op, Err: err, Kind: KindUnknown}
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		e.Kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTransient
	case errors.As(err, &netErr):
		e.Kind = KindTransient
	}
	return e
}

// fold lowercases and strips diacritics so "Já existe" and "ja existe" match.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
