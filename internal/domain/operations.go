package domain

import "time"

// OperationKind tags a mutation on the transaction list.
type OperationKind string

const (
	OpToggleStatus OperationKind = "toggle_status"
	OpScopedEdit   OperationKind = "scoped_edit"
	OpScopedDelete OperationKind = "scoped_delete"
)

// Operation is a closed union of user mutations. Each kind is dispatched to
// its own handler; a status toggle never shares a code path with delete.
type Operation interface {
	Kind() OperationKind
}

type ToggleStatusOp struct {
	TargetID string
}

func (ToggleStatusOp) Kind() OperationKind { return OpToggleStatus }

type ScopedEditOp struct {
	TargetID string
	Scope    Scope
	Changes  TransactionChanges
}

func (ScopedEditOp) Kind() OperationKind { return OpScopedEdit }

type ScopedDeleteOp struct {
	TargetID string
	Scope    Scope
}

func (ScopedDeleteOp) Kind() OperationKind { return OpScopedDelete }

// OperationRequest is the JSON envelope accepted by POST /v1/operations.
type OperationRequest struct {
	Kind     OperationKind      `json:"kind"`
	TargetID string             `json:"target_id"`
	Scope    string             `json:"scope,omitempty"`
	Changes  TransactionChanges `json:"changes"`
}

// ToOperation validates the envelope and returns the matching variant.
func (r *OperationRequest) ToOperation() (Operation, error) {
	if r.TargetID == "" {
		return nil, &ErrValidation{Field: "target_id", Message: "required"}
	}
	switch r.Kind {
	case OpToggleStatus:
		return ToggleStatusOp{TargetID: r.TargetID}, nil
	case OpScopedEdit:
		scope, err := ParseScope(r.Scope)
		if err != nil {
			return nil, err
		}
		return ScopedEditOp{TargetID: r.TargetID, Scope: scope, Changes: r.Changes}, nil
	case OpScopedDelete:
		scope, err := ParseScope(r.Scope)
		if err != nil {
			return nil, err
		}
		return ScopedDeleteOp{TargetID: r.TargetID, Scope: scope}, nil
	}
	return nil, &ErrValidation{Field: "kind", Message: "must be toggle_status, scoped_edit or scoped_delete"}
}

// OperationResult carries whatever the dispatched handler produced.
type OperationResult struct {
	Kind          OperationKind       `json:"kind"`
	Updated       []TransactionRecord `json:"updated,omitempty"`
	Removed       []TransactionRecord `json:"removed,omitempty"`
	UndoToken     string              `json:"undo_token,omitempty"`
	UndoExpiresAt *time.Time          `json:"undo_expires_at,omitempty"`
}
