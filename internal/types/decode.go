package types

import (
	"encoding/json"
	"fmt"

	"github.com/telos-vcs/telos/internal/telerr"
)

// Decode routes a JSON body (as produced by codec.Canonicalize, including
// its "type" discriminator) to the concrete record variant named by tag and
// returns that struct value as an interface{}. Unrecognized tags yield
// telerr.ErrUnknownTypeTag.
func Decode(tag Tag, body []byte) (interface{}, error) {
	switch tag {
	case TagIntent:
		var v Intent
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagBehaviorDiff:
		var v BehaviorDiff
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagIntentStreamSnapshot:
		var v IntentStreamSnapshot
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagDecisionRecord:
		var v DecisionRecord
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagConstraint:
		var v Constraint
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagCodeBinding:
		var v CodeBinding
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagAgentOperation:
		var v AgentOperation
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case TagChangeSet:
		var v ChangeSet
		if err := unmarshalInto(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, telerr.Wrap(fmt.Sprintf("tag %q", tag), telerr.ErrUnknownTypeTag)
	}
}

func unmarshalInto(body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		return telerr.Wrap("decode record body", telerr.ErrSerialization)
	}
	return nil
}
