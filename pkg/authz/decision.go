package authz

import "fmt"

// Result is the outcome of an evaluation.
type Result int

const (
	Fail Result = iota
	Succeed
)

func (r Result) String() string {
	switch r {
	case Succeed:
		return "succeed"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Denial reasons. They are diagnostic only and must not be parsed.
const (
	ReasonMissingTenant   = "missing tenant identifier"
	ReasonMissingIdentity = "missing identity claim"
	ReasonNotAdmin        = "not a member/admin of this organization"
	ReasonUnavailable     = "membership store unavailable"
)

// Decision is the tagged outcome of an evaluation. Err is set only when
// the evaluation failed closed because of an operational fault.
type Decision struct {
	Result Result
	Reason string
	Err    error
}

func succeed() Decision {
	return Decision{Result: Succeed}
}

func fail(reason string) Decision {
	return Decision{Result: Fail, Reason: reason}
}

func failClosed(err error) Decision {
	return Decision{Result: Fail, Reason: ReasonUnavailable, Err: err}
}

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool {
	return d.Result == Succeed
}

// Operational reports whether the denial came from a store fault rather
// than from the caller's membership.
func (d Decision) Operational() bool {
	return d.Result == Fail && d.Err != nil
}

func (d Decision) String() string {
	if d.Allowed() {
		return d.Result.String()
	}
	return fmt.Sprintf("%s: %s", d.Result, d.Reason)
}
