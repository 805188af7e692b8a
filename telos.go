// Package telos provides the public API for the intent-record storage and
// graph engine: repository lifecycle, typed record creation, object
// resolution, DAG traversal, and query functions.
//
// External collaborators (a CLI, a rendering layer, a TOML scenario loader)
// should depend only on this package, not on internal/*.
package telos

import (
	"context"
	"log/slog"

	"github.com/telos-vcs/telos/internal/index"
	"github.com/telos-vcs/telos/internal/objectid"
	"github.com/telos-vcs/telos/internal/query"
	"github.com/telos-vcs/telos/internal/refstore"
	"github.com/telos-vcs/telos/internal/repository"
	"github.com/telos-vcs/telos/internal/telerr"
	"github.com/telos-vcs/telos/internal/types"
)

// Core record and value types for working with intent records.
type (
	Author               = types.Author
	BehaviorClause       = types.BehaviorClause
	Intent               = types.Intent
	BehaviorChange       = types.BehaviorChange
	ImpactRadius         = types.ImpactRadius
	Verification         = types.Verification
	BehaviorDiff         = types.BehaviorDiff
	IntentStreamSnapshot = types.IntentStreamSnapshot
	Alternative          = types.Alternative
	DecisionRecord       = types.DecisionRecord
	Constraint           = types.Constraint
	CodeBinding          = types.CodeBinding
	Span                 = types.Span
	AgentOperation       = types.AgentOperation
	ChangeSet            = types.ChangeSet
	StreamConflict       = types.StreamConflict
)

// Enum types underlying the constants below.
type (
	VerificationStatus = types.VerificationStatus
	ConstraintSeverity = types.ConstraintSeverity
	ConstraintStatus   = types.ConstraintStatus
	BindingType        = types.BindingType
	BindingResolution  = types.BindingResolution
	OperationType      = types.OperationType
	OperationResult    = types.OperationResult
)

// Enum-valued fields.
const (
	VerificationPending = types.VerificationPending
	VerificationPassed  = types.VerificationPassed
	VerificationFailed  = types.VerificationFailed

	SeverityMust   = types.SeverityMust
	SeverityShould = types.SeverityShould
	SeverityPrefer = types.SeverityPrefer

	ConstraintActive     = types.ConstraintActive
	ConstraintSuperseded = types.ConstraintSuperseded
	ConstraintDeprecated = types.ConstraintDeprecated

	BindingFile     = types.BindingFile
	BindingFunction = types.BindingFunction
	BindingModule   = types.BindingModule
	BindingAPI      = types.BindingAPI
	BindingTypeKind = types.BindingTypeKind

	ResolutionResolved   = types.ResolutionResolved
	ResolutionUnresolved = types.ResolutionUnresolved
	ResolutionUnchecked  = types.ResolutionUnchecked

	OpReview    = types.OpReview
	OpGenerate  = types.OpGenerate
	OpDecide    = types.OpDecide
	OpQuery     = types.OpQuery
	OpViolation = types.OpViolation

	ResultSuccess = types.ResultSuccess
	ResultWarning = types.ResultWarning
	ResultFailure = types.ResultFailure
	ResultSkipped = types.ResultSkipped
)

// ContentID is a 64-character lowercase hex SHA-256 digest, the identity of
// every stored record.
type ContentID = objectid.ID

// ParseContentID validates and normalizes a content id string.
func ParseContentID(s string) (ContentID, error) { return objectid.Parse(s) }

// StreamRef is the mutable, one-per-file representation of a stream's
// current tip.
type StreamRef = refstore.StreamRef

// Repository is the top-level handle over one on-disk .telos tree.
type Repository = repository.Repository

// IntentWalker performs breadth-first traversal over an intent's parents.
type IntentWalker = repository.IntentWalker

// Error sentinels and structured error types. Use errors.Is/errors.As.
var (
	ErrInvalidObjectId   = telerr.ErrInvalidObjectId
	ErrUnknownTypeTag    = telerr.ErrUnknownTypeTag
	ErrSerialization     = telerr.ErrSerialization
	ErrIo                = telerr.ErrIo
	ErrObjectNotFound    = telerr.ErrObjectNotFound
	ErrRepositoryNotFound = telerr.ErrRepositoryNotFound
	ErrRepositoryExists   = telerr.ErrRepositoryExists
	ErrStreamNotFound     = telerr.ErrStreamNotFound
	ErrStreamExists       = telerr.ErrStreamExists
	ErrLockConflict       = telerr.ErrLockConflict
	ErrInvalidHead        = telerr.ErrInvalidHead
)

type (
	AmbiguousPrefixError    = telerr.AmbiguousPrefixError
	IntegrityError          = telerr.IntegrityError
	InvalidStreamNameError  = telerr.InvalidStreamNameError
	InvalidReferenceError   = telerr.InvalidReferenceError
)

// Init creates a new .telos tree under root.
func Init(root string, logger *slog.Logger) (*Repository, error) {
	return repository.Init(root, logger)
}

// Open opens an existing .telos tree under root.
func Open(root string, logger *slog.Logger) (*Repository, error) {
	return repository.Open(root, logger)
}

// Discover walks ancestors of start looking for a .telos tree.
func Discover(start string, logger *slog.Logger) (*Repository, error) {
	return repository.Discover(start, logger)
}

// Query result and function aliases.
type (
	IntentResult          = query.IntentResult
	DecisionResult        = query.DecisionResult
	ConstraintResult      = query.ConstraintResult
	AgentOperationResult  = query.AgentOperationResult
	IndexEntry            = index.Entry
)

// QueryIntents filter-scans repo for intents.
func QueryIntents(ctx context.Context, repo *Repository, impact, constraintContains *string) ([]IntentResult, error) {
	return query.QueryIntents(ctx, repo.ODB, impact, constraintContains)
}

// QueryDecisions filter-scans repo for decision records.
func QueryDecisions(ctx context.Context, repo *Repository, intentID *ContentID, tag *string) ([]DecisionResult, error) {
	return query.QueryDecisions(ctx, repo.ODB, intentID, tag)
}

// QueryConstraints filter-scans repo for constraints, defaulting status to
// "active".
func QueryConstraints(ctx context.Context, repo *Repository, impact *string, status string) ([]ConstraintResult, error) {
	return query.QueryConstraints(ctx, repo.ODB, impact, status)
}

// QueryConstraintsByFile bridges path -> code binding -> constraint.
func QueryConstraintsByFile(ctx context.Context, repo *Repository, path string) ([]ConstraintResult, error) {
	return query.QueryConstraintsByFile(ctx, repo.ODB, repo.Index, path)
}

// QueryConstraintsBySymbol bridges symbol -> code binding -> constraint.
func QueryConstraintsBySymbol(ctx context.Context, repo *Repository, symbol string) ([]ConstraintResult, error) {
	return query.QueryConstraintsBySymbol(ctx, repo.ODB, repo.Index, symbol)
}

// QueryAgentOperations filter-scans repo for agent operations.
func QueryAgentOperations(ctx context.Context, repo *Repository, agent, session *string) ([]AgentOperationResult, error) {
	return query.QueryAgentOperations(ctx, repo.ODB, agent, session)
}
