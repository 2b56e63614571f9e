// Package grading derives aggregate marks of a unit from the marks of its leaves.
//
// A unit holds assignments, an assignment holds parts and a part holds leaves (text boxes and
// upload slots). Every aggregate is re-derived from the full set of its children, never incrementally.
package grading

import (
	"errors"
	"math"
)

var (
	// errors
	ErrMarkOutOfRange    = errors.New("mark must be between zero and the points available")
	ErrIncompleteMarking = errors.New("all required items must be marked")
)

// Marks holds the grading fields shared by every level of the tree.
// A non-null mark_override is the serialized form of Overridden.
type Marks struct {
	Points       float64  `json:"points"`
	Mark         *float64 `json:"mark"`
	MarkOverride *float64 `json:"mark_override"`
}

// Effective is the override when present, the mark otherwise.
func (m Marks) Effective() *float64 {
	if m.MarkOverride != nil {
		return m.MarkOverride
	}
	return m.Mark
}

// Overridden reports whether a tutor override applies to this node or one of its descendants.
// Aggregate only sets an override on a parent when some child carries one, so the flag needs no field of its own.
func (m Marks) Overridden() bool {
	return m.MarkOverride != nil
}

// Node is one level of a gradable tree. Leaves have no children.
type Node interface {
	GradingMarks() *Marks
	GradingChildren() []Node
	IsOptional() bool
}

// Aggregate derives the marks of a parent from all of its children:
//   - points is the sum of the children's points;
//   - mark is the sum of the children's marks, or nil while a required child is unmarked
//     (optional children only count once marked);
//   - markOverride is the sum of each child's override, mark or zero, or nil when no child is overridden.
func Aggregate(children []Node) Marks {
	var agg Marks
	var markSum, overrideSum float64
	complete, overridden := true, false
	for _, child := range children {
		m := child.GradingMarks()
		agg.Points += m.Points

		if m.Mark != nil {
			markSum += *m.Mark
		} else if !child.IsOptional() {
			complete = false
		}

		if m.MarkOverride != nil {
			overridden = true
		}
		if eff := m.Effective(); eff != nil {
			overrideSum += *eff
		}
	}
	if complete {
		agg.Mark = &markSum
	}
	if overridden {
		agg.MarkOverride = &overrideSum
	}
	return agg
}

// Complete reports whether every required leaf below n carries a mark or an override.
func Complete(n Node) bool {
	if isLeaf(n) {
		return n.GradingMarks().Effective() != nil
	}
	for _, child := range n.GradingChildren() {
		if !child.IsOptional() && !Complete(child) {
			return false
		}
	}
	return true
}

// Recompute re-derives every aggregate below and including n, bottom-up.
// Leaves keep their own marks.
func Recompute(n Node) {
	if isLeaf(n) {
		return
	}
	children := n.GradingChildren()
	for _, child := range children {
		Recompute(child)
	}
	*n.GradingMarks() = Aggregate(children)
}

// ValidateMark checks that a leaf mark (or override) lies in [0, points]. A nil mark clears it.
func ValidateMark(mark *float64, points float64) error {
	if mark == nil {
		return nil
	}
	if *mark < 0 || *mark > points {
		return ErrMarkOutOfRange
	}
	return nil
}

// Leaf is implemented by nodes that are marked directly by a tutor.
type Leaf interface {
	Node
	IsLeaf() bool
}

func isLeaf(n Node) bool {
	l, ok := n.(Leaf)
	return ok && l.IsLeaf()
}

// Percentage returns round(100 * effective mark / points), or nil when unmarked or worth nothing.
func Percentage(m Marks) *float64 {
	eff := m.Effective()
	if eff == nil || m.Points == 0 {
		return nil
	}
	pct := math.Round(100 * *eff / m.Points)
	return &pct
}
