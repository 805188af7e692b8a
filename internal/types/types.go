// Package types defines the closed set of record variants stored in the
// object database, plus the mutable reference shapes.
package types

import (
	"encoding/json"
	"time"

	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/telerr"
)

// Tag identifies which of the eight record variants a stored object is.
type Tag string

const (
	TagIntent               Tag = "intent"
	TagBehaviorDiff         Tag = "behavior_diff"
	TagIntentStreamSnapshot Tag = "intent_stream_snapshot"
	TagDecisionRecord       Tag = "decision_record"
	TagConstraint           Tag = "constraint"
	TagCodeBinding          Tag = "code_binding"
	TagAgentOperation       Tag = "agent_operation"
	TagChangeSet            Tag = "change_set"
)

// Author identifies the human or agent responsible for a record.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BehaviorClause is a GIVEN/WHEN/THEN acceptance clause attached to an
// Intent.
type BehaviorClause struct {
	Given string `json:"given"`
	When  string `json:"when"`
	Then  string `json:"then"`
}

// Intent is a dated, authored declaration of purpose, optionally linked to
// parent intents and carrying free-text constraints and behavior clauses.
type Intent struct {
	Author        Author                 `json:"author"`
	Timestamp     time.Time              `json:"timestamp"`
	Statement     string                 `json:"statement"`
	Constraints   []string               `json:"constraints,omitempty"`
	BehaviorSpec  []BehaviorClause       `json:"behavior_spec,omitempty"`
	Parents       []objectid.ID          `json:"parents,omitempty"`
	Impacts       []string               `json:"impacts,omitempty"`
	BehaviorDiff  *objectid.ID           `json:"behavior_diff,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

func (Intent) recordTag() Tag { return TagIntent }

// VerificationStatus is the lifecycle state of a BehaviorDiff's
// verification.
type VerificationStatus string

const (
	VerificationPending VerificationStatus = "pending"
	VerificationPassed  VerificationStatus = "passed"
	VerificationFailed  VerificationStatus = "failed"
)

// BehaviorChange describes one observable before/after change in behavior.
type BehaviorChange struct {
	Description string  `json:"description"`
	Before      *string `json:"before,omitempty"`
	After       string  `json:"after"`
}

// ImpactRadius lists the paths/symbols directly and indirectly affected by a
// BehaviorDiff.
type ImpactRadius struct {
	Direct   []string `json:"direct"`
	Indirect []string `json:"indirect,omitempty"`
}

// Verification records the outcome of checking a BehaviorDiff against
// reality.
type Verification struct {
	Status  VerificationStatus `json:"status"`
	Details *string            `json:"details,omitempty"`
}

// BehaviorDiff records the concrete behavior change an Intent produced.
type BehaviorDiff struct {
	IntentID     objectid.ID      `json:"intent_id"`
	Changes      []BehaviorChange `json:"changes"`
	Impact       ImpactRadius     `json:"impact"`
	Verification *Verification    `json:"verification,omitempty"`
}

func (BehaviorDiff) recordTag() Tag { return TagBehaviorDiff }

// IntentStreamSnapshot is an immutable, content-addressed capture of a
// stream's tip at a point in time.
type IntentStreamSnapshot struct {
	Name         string      `json:"name"`
	Tip          objectid.ID `json:"tip"`
	CreatedAt    time.Time   `json:"created_at"`
	Description  *string     `json:"description,omitempty"`
	ParentStream *string     `json:"parent_stream,omitempty"`
}

func (IntentStreamSnapshot) recordTag() Tag { return TagIntentStreamSnapshot }

// Alternative is a rejected option recorded alongside a DecisionRecord.
type Alternative struct {
	Description      string `json:"description"`
	RejectionReason   string `json:"rejection_reason"`
}

// DecisionRecord captures a question, the decision made, and why.
type DecisionRecord struct {
	IntentID    objectid.ID   `json:"intent_id"`
	Author      Author        `json:"author"`
	Timestamp   time.Time     `json:"timestamp"`
	Question    string        `json:"question"`
	Decision    string        `json:"decision"`
	Rationale   *string       `json:"rationale,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

func (DecisionRecord) recordTag() Tag { return TagDecisionRecord }

// ConstraintSeverity ranks how binding a Constraint is.
type ConstraintSeverity string

const (
	SeverityMust   ConstraintSeverity = "must"
	SeverityShould ConstraintSeverity = "should"
	SeverityPrefer ConstraintSeverity = "prefer"
)

// ConstraintStatus is the lifecycle state of a Constraint.
type ConstraintStatus string

const (
	ConstraintActive     ConstraintStatus = "active"
	ConstraintSuperseded ConstraintStatus = "superseded"
	ConstraintDeprecated ConstraintStatus = "deprecated"
)

// Constraint is a standing rule the system must, should, or prefers to
// satisfy, traceable back to the intent that introduced it.
type Constraint struct {
	Author             Author                 `json:"author"`
	Timestamp          time.Time              `json:"timestamp"`
	Statement          string                 `json:"statement"`
	Severity           ConstraintSeverity     `json:"severity"`
	Status             ConstraintStatus       `json:"status"`
	SourceIntent       objectid.ID            `json:"source_intent"`
	SupersededBy       *objectid.ID           `json:"superseded_by,omitempty"`
	DeprecationReason  *string                `json:"deprecation_reason,omitempty"`
	Scope              []objectid.ID          `json:"scope,omitempty"`
	Impacts            []string               `json:"impacts,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

func (Constraint) recordTag() Tag { return TagConstraint }

// BindingType identifies what kind of source-code entity a CodeBinding
// points at.
type BindingType string

const (
	BindingFile     BindingType = "file"
	BindingFunction BindingType = "function"
	BindingModule   BindingType = "module"
	BindingAPI      BindingType = "api"
	BindingTypeKind BindingType = "type"
)

// BindingResolution tracks whether a CodeBinding's target has been verified
// to still exist.
type BindingResolution string

const (
	ResolutionResolved   BindingResolution = "resolved"
	ResolutionUnresolved BindingResolution = "unresolved"
	ResolutionUnchecked  BindingResolution = "unchecked"
)

// Span is an inclusive (start, end) byte or line range within a file.
type Span struct {
	Start uint32
	End   uint32
}

// MarshalJSON encodes Span as a two-element JSON array, matching the
// tuple shape in the record table.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint32{s.Start, s.End})
}

// UnmarshalJSON decodes Span from a two-element JSON array.
func (s *Span) UnmarshalJSON(b []byte) error {
	var pair [2]uint32
	if err := json.Unmarshal(b, &pair); err != nil {
		return telerr.Wrap("unmarshal span", telerr.ErrSerialization)
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// CodeBinding links a stored object to a file path and optional symbol in an
// external source tree.
type CodeBinding struct {
	Path        string                 `json:"path"`
	Symbol      *string                `json:"symbol,omitempty"`
	Span        *Span                  `json:"span,omitempty"`
	BindingType BindingType            `json:"binding_type"`
	Resolution  BindingResolution      `json:"resolution"`
	BoundObject objectid.ID            `json:"bound_object"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

func (CodeBinding) recordTag() Tag { return TagCodeBinding }

// OperationType is the kind of action an agent performed.
type OperationType struct {
	Kind   string `json:"-"`
	Custom string `json:"-"`
}

const (
	OpReview   = "review"
	OpGenerate = "generate"
	OpDecide   = "decide"
	OpQuery    = "query"
	OpViolation = "violation"
)

// MarshalJSON encodes OperationType as its bare string for the built-in
// kinds, or {"custom": "..."} for a caller-defined kind.
func (o OperationType) MarshalJSON() ([]byte, error) {
	if o.Kind == "custom" {
		return json.Marshal(map[string]string{"custom": o.Custom})
	}
	return json.Marshal(o.Kind)
}

// UnmarshalJSON decodes an OperationType from either form.
func (o *OperationType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Kind, o.Custom = s, ""
		return nil
	}
	var wrapped map[string]string
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return telerr.Wrap("unmarshal operation type", telerr.ErrSerialization)
	}
	custom, ok := wrapped["custom"]
	if !ok {
		return telerr.Wrap("operation type missing custom field", telerr.ErrSerialization)
	}
	o.Kind, o.Custom = "custom", custom
	return nil
}

// OperationResult is the outcome of an agent operation.
type OperationResult struct {
	Kind    string `json:"-"`
	Message string `json:"-"`
}

const (
	ResultSuccess = "success"
	ResultWarning = "warning"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// MarshalJSON encodes OperationResult as its bare string for Success/
// Skipped, or as {"warning": "..."} / {"failure": "..."} carrying Message
// (possibly empty) for Warning/Failure.
func (r OperationResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResultWarning, ResultFailure:
		return json.Marshal(map[string]string{r.Kind: r.Message})
	default:
		return json.Marshal(r.Kind)
	}
}

// UnmarshalJSON decodes an OperationResult from either form.
func (r *OperationResult) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.Kind, r.Message = s, ""
		return nil
	}
	var wrapped map[string]string
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return telerr.Wrap("unmarshal operation result", telerr.ErrSerialization)
	}
	for _, kind := range []string{ResultWarning, ResultFailure} {
		if msg, ok := wrapped[kind]; ok {
			r.Kind, r.Message = kind, msg
			return nil
		}
	}
	return telerr.Wrap("operation result missing warning/failure field", telerr.ErrSerialization)
}

// AgentOperation records one action an automated agent performed, together
// with the objects it touched.
type AgentOperation struct {
	AgentID      string                 `json:"agent_id"`
	SessionID    string                 `json:"session_id"`
	Timestamp    time.Time              `json:"timestamp"`
	Operation    OperationType          `json:"operation"`
	Result       OperationResult        `json:"result"`
	Summary      string                 `json:"summary"`
	ContextRefs  []objectid.ID          `json:"context_refs,omitempty"`
	FilesTouched []string               `json:"files_touched,omitempty"`
	ParentOp     *objectid.ID           `json:"parent_op,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (AgentOperation) recordTag() Tag { return TagAgentOperation }

// ChangeSet joins a foreign commit identifier to the intents, constraints,
// decisions, bindings, and agent operations that motivated it.
type ChangeSet struct {
	Author          Author                 `json:"author"`
	Timestamp       time.Time              `json:"timestamp"`
	GitCommit       string                 `json:"git_commit"`
	Parents         []objectid.ID          `json:"parents,omitempty"`
	Intents         []objectid.ID          `json:"intents,omitempty"`
	Constraints     []objectid.ID          `json:"constraints,omitempty"`
	Decisions       []objectid.ID          `json:"decisions,omitempty"`
	CodeBindings    []objectid.ID          `json:"code_bindings,omitempty"`
	AgentOperations []objectid.ID          `json:"agent_operations,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

func (ChangeSet) recordTag() Tag { return TagChangeSet }

// StreamConflict describes a divergence between two streams. Carried over
// from the originating design as an API-complete placeholder: no Repository
// operation currently constructs or persists one.
type StreamConflict struct {
	StreamA             string        `json:"stream_a"`
	StreamB             string        `json:"stream_b"`
	ConflictingIntents  []objectid.ID `json:"conflicting_intents"`
	Description         string        `json:"description"`
}

// record is the unexported marker interface implemented by every stored
// variant, closing the union against external extension.
type record interface {
	recordTag() Tag
}

var (
	_ record = Intent{}
	_ record = BehaviorDiff{}
	_ record = IntentStreamSnapshot{}
	_ record = DecisionRecord{}
	_ record = Constraint{}
	_ record = CodeBinding{}
	_ record = AgentOperation{}
	_ record = ChangeSet{}
)

// TagOf returns the type tag of any record variant.
func TagOf(r record) Tag { return r.recordTag() }
