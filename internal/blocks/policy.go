package blocks

import (
	"homestyle_sync/internal/config"
)

// Skip reasons shared by several operations.
const (
	ReasonInvalidName = "invalid_name"
	ReasonClosed      = "closed"
)

// Decision is the outcome of a skip rule. Counted skips show up in the
// operation's skip total; uncounted ones are silent.
type Decision struct {
	Skip    bool
	Reason  string
	Counted bool
}

// Proceed is the zero Decision.
var Proceed = Decision{}

func SkipCounted(reason string) Decision {
	return Decision{Skip: true, Reason: reason, Counted: true}
}

func SkipSilent(reason string) Decision {
	return Decision{Skip: true, Reason: reason}
}

// Rule inspects a block and decides whether to bypass it.
type Rule func(Block) Decision

// Policy applies rules in order; the first skip wins.
type Policy []Rule

func (p Policy) Evaluate(b Block) Decision {
	for _, rule := range p {
		if d := rule(b); d.Skip {
			return d
		}
	}
	return Proceed
}

// SkipInvalidName silently bypasses blocks whose name field is not a real
// project name.
func SkipInvalidName(names NameRules) Rule {
	return func(b Block) Decision {
		if !names.IsValid(b.Cell(config.FieldName).Display) {
			return SkipSilent(ReasonInvalidName)
		}
		return Proceed
	}
}

// SkipClosed bypasses 완료/취소 blocks and counts them.
func SkipClosed() Rule {
	return func(b Block) Decision {
		if IsClosedBlock(b) {
			return SkipCounted(ReasonClosed)
		}
		return Proceed
	}
}
