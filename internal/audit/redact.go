package audit

import (
	"strings"

	"educonnect/internal/model"
)

// Redacted replaces sensitive values in stored and displayed change sets.
const Redacted = "[REDACTED]"

var sensitiveFields = []string{"password", "secret", "token"}

// Sensitive reports whether a field name carries a secret.
func Sensitive(field string) bool {
	f := strings.ToLower(field)
	for _, s := range sensitiveFields {
		if strings.Contains(f, s) {
			return true
		}
	}
	return false
}

// Redact returns a copy of changes with sensitive values replaced.
func Redact(changes []model.FieldChange) []model.FieldChange {
	if changes == nil {
		return nil
	}
	out := make([]model.FieldChange, len(changes))
	for i, c := range changes {
		out[i] = c
		if Sensitive(c.Field) {
			out[i].Old, out[i].New = Redacted, Redacted
			continue
		}
		if isRedacted(c.Old) {
			out[i].Old = Redacted
		}
		if isRedacted(c.New) {
			out[i].New = Redacted
		}
	}
	return out
}

func isRedacted(v any) bool {
	s, ok := v.(string)
	return ok && s == Redacted
}

// Present prepares a stored event for display. Values are redacted again so
// events written before a field became sensitive never leak it.
func Present(e model.AuditEvent) model.AuditEvent {
	e.Changes = Redact(e.Changes)
	return e
}
