package scheduler

import "github.com/arnavshah/rota-matcher/pkg/models"

// CanWork reports whether a person may work a shift category.
//
// A non-empty allow-list decides on its own and the forbid-list is ignored.
// Otherwise a non-empty forbid-list excludes its members. A person with
// neither list may work any shift.
func CanWork(p models.Person, c models.ShiftCategory) bool {
	if !p.Allowed.Empty() {
		return p.Allowed.Has(c)
	}
	if !p.Forbidden.Empty() {
		return !p.Forbidden.Has(c)
	}
	return true
}
