package ledger

import (
	"errors"
	"fmt"
	"slices"

	"finance/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultHistoryDepth bounds the undo stack when no depth is configured.
const DefaultHistoryDepth = 100

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Command is a reversible ledger mutation.
type Command interface {
	Apply(l *Ledger) error
	Revert(l *Ledger) error
	// Describe names the operation for logs and events.
	Describe() string
}

// History records applied commands so they can be undone and redone.
type History struct {
	depth int
	undo  []Command
	redo  []Command
}

func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

// Do applies cmd and records it. The redo stack is cleared.
func (h *History) Do(l *Ledger, cmd Command) error {
	if err := cmd.Apply(l); err != nil {
		return err
	}
	h.undo = append(h.undo, cmd)
	if len(h.undo) > h.depth {
		h.undo = h.undo[len(h.undo)-h.depth:]
	}
	h.redo = nil
	return nil
}

// Undo reverts the latest command and returns it.
func (h *History) Undo(l *Ledger) (Command, error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.Revert(l); err != nil {
		return nil, err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	return cmd, nil
}

// Redo re-applies the latest undone command and returns it.
func (h *History) Redo(l *Ledger) (Command, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	cmd := h.redo[len(h.redo)-1]
	if err := cmd.Apply(l); err != nil {
		return nil, err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	return cmd, nil
}

// Checkpoint is a copy of both stacks, taken before a step that may need to
// be rolled back.
type Checkpoint struct {
	undo []Command
	redo []Command
}

func (h *History) Checkpoint() Checkpoint {
	return Checkpoint{undo: slices.Clone(h.undo), redo: slices.Clone(h.redo)}
}

// Restore puts both stacks back as they were at cp. The ledger itself is
// not touched.
func (h *History) Restore(cp Checkpoint) {
	h.undo = cp.undo
	h.redo = cp.redo
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear forgets every recorded command, e.g. after a document load.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// CreateCommand creates a transaction. After the first Apply the created
// transaction is remembered, and a redo restores it with the same id.
type CreateCommand struct {
	Draft   Draft
	Created core.Transaction
	applied bool
	pos     int
}

func (c *CreateCommand) Apply(l *Ledger) error {
	if c.applied {
		return l.restore(c.Created, c.pos)
	}
	tx, err := l.Create(c.Draft)
	if err != nil {
		return err
	}
	c.Created = tx
	c.pos, _ = l.position(tx.ID)
	c.applied = true
	return nil
}

func (c *CreateCommand) Revert(l *Ledger) error {
	return l.Delete(c.Created.ID)
}

func (c *CreateCommand) Describe() string { return "create" }

// UpdateCommand patches a transaction and remembers its prior state.
type UpdateCommand struct {
	ID      int64
	Patch   Patch
	Before  core.Transaction
	Updated core.Transaction
}

func (c *UpdateCommand) Apply(l *Ledger) error {
	before, ok := l.Transaction(c.ID)
	if !ok {
		return l.notFound(c.ID)
	}
	updated, err := l.Update(c.ID, c.Patch)
	if err != nil {
		return err
	}
	c.Before = before
	c.Updated = updated
	return nil
}

func (c *UpdateCommand) Revert(l *Ledger) error {
	b := c.Before
	_, err := l.Update(c.ID, Patch{
		Name:     &b.Name,
		Kind:     &b.Kind,
		Amount:   &b.Amount,
		Date:     &b.Date,
		Category: &b.Category,
	})
	return err
}

func (c *UpdateCommand) Describe() string { return "update" }

// DeleteCommand removes a transaction; undo restores it at the index it
// had in the document.
type DeleteCommand struct {
	ID      int64
	Deleted core.Transaction
	Index   int
}

func (c *DeleteCommand) Apply(l *Ledger) error {
	tx, ok := l.Transaction(c.ID)
	if !ok {
		return l.notFound(c.ID)
	}
	pos, _ := l.position(c.ID)
	if err := l.Delete(c.ID); err != nil {
		return err
	}
	c.Deleted = tx
	c.Index = pos
	return nil
}

func (c *DeleteCommand) Revert(l *Ledger) error {
	return l.restore(c.Deleted, c.Index)
}

func (c *DeleteCommand) Describe() string { return "delete" }

// BudgetCommand sets or clears a category budget.
type BudgetCommand struct {
	Category string
	Amount   *decimal.Decimal
	previous *decimal.Decimal
}

func (c *BudgetCommand) Apply(l *Ledger) error {
	var prev *decimal.Decimal
	if b, ok := l.Budget(c.Category); ok {
		prev = &b
	}
	if err := l.SetBudget(c.Category, c.Amount); err != nil {
		return err
	}
	c.previous = prev
	return nil
}

func (c *BudgetCommand) Revert(l *Ledger) error {
	return l.SetBudget(c.Category, c.previous)
}

func (c *BudgetCommand) Describe() string { return "budget" }

func (l *Ledger) notFound(id int64) error {
	return fmt.Errorf("%w: id %d", core.ErrNotFound, id)
}
