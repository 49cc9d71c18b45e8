package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

// SaveRoster replaces the stored roster with people.
func SaveRoster(db *gorm.DB, people []models.Person) error {
	rows := make([]Employee, len(people))
	for i, p := range people {
		rows[i] = Employee{
			PersonID:   p.ID,
			Name:       p.Name,
			Profession: p.Profession.String(),
			Allowed:    p.Allowed.Codes(),
			Forbidden:  p.Forbidden.Codes(),
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Employee{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

// LoadRoster returns the stored roster in the order it was saved.
func LoadRoster(db *gorm.DB) ([]models.Person, error) {
	var rows []Employee
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	people := make([]models.Person, 0, len(rows))
	for _, r := range rows {
		prof, err := models.ParseProfession(r.Profession)
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", r.PersonID, err)
		}
		allowed, _ := models.ParseShiftCodes(r.Allowed)
		forbidden, _ := models.ParseShiftCodes(r.Forbidden)
		people = append(people, models.Person{
			ID:         r.PersonID,
			Name:       r.Name,
			Profession: prof,
			Allowed:    allowed,
			Forbidden:  forbidden,
		})
	}
	return people, nil
}

// SaveSchedule stores a finished run under sched.ID.
func SaveSchedule(db *gorm.DB, keyID uint, sched *models.Schedule) error {
	if sched.ID == "" {
		return errors.New("schedule has no id")
	}

	rec := ScheduleRecord{
		ID:               sched.ID,
		KeyID:            keyID,
		FilledCount:      sched.FilledCount,
		TotalSlots:       sched.TotalSlots,
		ScheduleComplete: sched.ScheduleComplete,
		FairnessScore:    sched.FairnessScore,
		Passes:           sched.Passes,
		Warnings:         sched.Warnings,
		Unfilled:         sched.Unfilled,
	}
	for i, a := range sched.Assignments {
		rec.Assignments = append(rec.Assignments, AssignmentRecord{
			Seq:        i,
			Day:        a.Day.String(),
			Shift:      a.Category.String(),
			Profession: a.Profession.String(),
			Position:   a.Position,
			PersonID:   a.PersonID,
			Name:       a.Name,
		})
	}
	for i, p := range sched.People {
		rec.Workloads = append(rec.Workloads, WorkloadRecord{
			Seq:        i,
			PersonID:   p.ID,
			Name:       p.Name,
			Profession: p.Profession.String(),
			Shifts:     sched.Workloads[p.ID],
		})
	}

	return db.Create(&rec).Error
}

// LoadSchedule reads a stored run back. The matched edges are rebuilt from
// the assignments.
func LoadSchedule(db *gorm.DB, id string) (*models.Schedule, error) {
	var rec ScheduleRecord
	err := db.
		Preload("Assignments", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq") }).
		Preload("Workloads", func(tx *gorm.DB) *gorm.DB { return tx.Order("seq") }).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}

	sched := &models.Schedule{
		ID:               rec.ID,
		Workloads:        make(map[string]int, len(rec.Workloads)),
		FilledCount:      rec.FilledCount,
		TotalSlots:       rec.TotalSlots,
		ScheduleComplete: rec.ScheduleComplete,
		FairnessScore:    rec.FairnessScore,
		Passes:           rec.Passes,
		Warnings:         rec.Warnings,
		Unfilled:         rec.Unfilled,
	}

	for _, w := range rec.Workloads {
		prof, err := models.ParseProfession(w.Profession)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", id, err)
		}
		sched.People = append(sched.People, models.Person{ID: w.PersonID, Name: w.Name, Profession: prof})
		sched.Workloads[w.PersonID] = w.Shifts
	}

	for _, a := range rec.Assignments {
		day, err := models.ParseDay(a.Day)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", id, err)
		}
		cat, err := models.ParseShiftCategory(a.Shift)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", id, err)
		}
		prof, err := models.ParseProfession(a.Profession)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", id, err)
		}
		sched.Assignments = append(sched.Assignments, models.Assignment{
			Day:        day,
			Category:   cat,
			PersonID:   a.PersonID,
			Name:       a.Name,
			Profession: prof,
			Position:   a.Position,
		})
		sched.MatchedEdges = append(sched.MatchedEdges, models.Edge{
			PersonID: a.PersonID,
			Slot:     models.ShiftSlot{Day: day, Category: cat, Profession: prof, Position: a.Position},
		})
	}
	return sched, nil
}

// FindOrCreateKey returns the api_keys row for key, creating it on first use.
func FindOrCreateKey(db *gorm.DB, key, name string) (*APIKey, error) {
	var apiKey APIKey
	err := db.Where(APIKey{Key: key}).FirstOrCreate(&apiKey, APIKey{
		Key:        key,
		KeyPreview: Preview(key),
		Name:       name,
		RateLimit:  DefaultRateLimit,
	}).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	apiKey.LastUsed = &now
	if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// Preview shortens a key for display.
func Preview(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// UsageDelta is what one request adds to a key's daily usage row.
type UsageDelta struct {
	TotalSlots  int
	FilledSlots int
	TotalPeople int
}

// RecordUsage adds one request to the key's usage row for day using a
// single upsert, which both postgres and sqlite support.
func RecordUsage(db *gorm.DB, keyID uint, day time.Time, d UsageDelta) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
			"total_slots":   gorm.Expr("total_slots + ?", d.TotalSlots),
			"filled_slots":  gorm.Expr("filled_slots + ?", d.FilledSlots),
			"total_people":  gorm.Expr("total_people + ?", d.TotalPeople),
		}),
	}).Create(&APIUsage{
		KeyID:        keyID,
		Date:         day.Format("2006-01-02"),
		RequestCount: 1,
		TotalSlots:   d.TotalSlots,
		FilledSlots:  d.FilledSlots,
		TotalPeople:  d.TotalPeople,
	}).Error
}

// UsageHistory returns the most recent 30 usage rows of a key.
func UsageHistory(db *gorm.DB, keyID uint) ([]APIUsage, error) {
	var usage []APIUsage
	err := db.Where("key_id = ?", keyID).Order("date desc").Limit(30).Find(&usage).Error
	return usage, err
}

// DefaultRateLimit is the daily request limit of a key created without one.
const DefaultRateLimit = 10000

// CreateKey stores a newly issued key. A limit of 0 means DefaultRateLimit.
func CreateKey(db *gorm.DB, key, name string, limit int) (*APIKey, error) {
	if limit == 0 {
		limit = DefaultRateLimit
	}
	apiKey := &APIKey{Key: key, KeyPreview: Preview(key), Name: name, RateLimit: limit}
	if err := db.Create(apiKey).Error; err != nil {
		return nil, fmt.Errorf("create key %q: %w", name, err)
	}
	return apiKey, nil
}

// ListKeys returns every key in creation order.
func ListKeys(db *gorm.DB) ([]APIKey, error) {
	var keys []APIKey
	err := db.Order("id").Find(&keys).Error
	return keys, err
}

// DeleteKey removes a key. Its usage rows are kept for reporting.
func DeleteKey(db *gorm.DB, id uint) error {
	res := db.Delete(&APIKey{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// SetRateLimit changes the daily request limit of a key.
func SetRateLimit(db *gorm.DB, id uint, limit int) error {
	res := db.Model(&APIKey{}).Where("id = ?", id).Update("rate_limit", limit)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// UsageToday returns the key's usage row for day, or a zero row when the
// key has not been used that day.
func UsageToday(db *gorm.DB, keyID uint, day time.Time) (APIUsage, error) {
	var usage APIUsage
	err := db.Where("key_id = ? AND date = ?", keyID, day.Format("2006-01-02")).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return APIUsage{KeyID: keyID, Date: day.Format("2006-01-02")}, nil
	}
	return usage, err
}
