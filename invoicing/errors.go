package invoicing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies failures of the invoice flows. Each kind has its own
// policy for what the user sees and what is persisted.
type Kind int

const (
	KindOther Kind = iota
	KindValidation
	KindPlanGate
	KindPersistence
	KindRender
	KindDelivery
	KindAudit
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPlanGate:
		return "plan gate"
	case KindPersistence:
		return "persistence"
	case KindRender:
		return "render"
	case KindDelivery:
		return "delivery"
	case KindAudit:
		return "audit"
	}
	return "other"
}

// Error carries a Kind plus the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Fields maps a field path (e.g. "items[0].unitPrice") to a message.
	Fields map[string]string

	// Fallback is set on plan gate rejections.
	Fallback *Selection
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.String())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %s", k, e.Fields[k])
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// E wraps err with a kind and operation name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrPlanRequired is wrapped by every plan gate rejection.
var ErrPlanRequired = errors.New("premium plan with active subscription required")

// fieldErrors collects validation messages.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func (fe fieldErrors) err(op string) error {
	if len(fe) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Op: op, Fields: fe}
}
