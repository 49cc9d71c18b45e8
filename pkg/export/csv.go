// Package export renders schedules for people: CSV, spreadsheets and a
// terminal weekly grid.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// WriteCSV writes one row per assignment, in slot order.
func WriteCSV(w io.Writer, sched *models.Schedule) error {
	writer := csv.NewWriter(w)
	writer.Write([]string{"day", "shift", "profession", "position", "person_id", "person_name"})

	for _, a := range sched.Assignments {
		writer.Write([]string{
			a.Day.String(),
			a.Category.String(),
			a.Profession.String(),
			strconv.Itoa(a.Position),
			a.PersonID,
			a.Name,
		})
	}
	writer.Flush()
	return writer.Error()
}
