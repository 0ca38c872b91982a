package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	// Cascade and SET NULL behavior depends on this pragma.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, in User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, name, email, settings, is_premium, premium_expires_at, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Email, in.Settings, boolInt(in.Premium),
		nullTime(in.PremiumExpiresAt), in.Timezone, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, settings, is_premium, premium_expires_at, timezone, created_at
		FROM users WHERE user_id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, in User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, email = ?, settings = ?, is_premium = ?, premium_expires_at = ?, timezone = ?
		WHERE user_id = ?`,
		in.Name, in.Email, in.Settings, boolInt(in.Premium), nullTime(in.PremiumExpiresAt), in.Timezone, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) CreateMedicine(ctx context.Context, in Medicine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medicines (med_id, user_id, name, generic_name, brand_name, manufacturer,
			category, form, strength, notes, source, source_ref, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Name, in.GenericName, in.BrandName, in.Manufacturer,
		in.Category, in.Form, in.Strength, in.Notes, in.Source, in.SourceRef,
		boolInt(in.Active), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetMedicine(ctx context.Context, id string) (Medicine, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT med_id, user_id, name, generic_name, brand_name, manufacturer,
			category, form, strength, notes, source, source_ref, is_active, created_at
		FROM medicines WHERE med_id = ?`, id)
	med, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Medicine{}, ErrNotFound
		}
		return Medicine{}, err
	}
	return med, nil
}

func (r *SQLiteRepository) UpdateMedicine(ctx context.Context, in Medicine) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medicines
		SET name = ?, generic_name = ?, brand_name = ?, manufacturer = ?, category = ?,
			form = ?, strength = ?, notes = ?, source = ?, source_ref = ?, is_active = ?
		WHERE med_id = ?`,
		in.Name, in.GenericName, in.BrandName, in.Manufacturer, in.Category,
		in.Form, in.Strength, in.Notes, in.Source, in.SourceRef, boolInt(in.Active), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// ArchiveMedicine clears the active flag, keeping reminders and history rows
// in place so historical intake stays attributable.
func (r *SQLiteRepository) ArchiveMedicine(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE medicines SET is_active = 0 WHERE med_id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// DeleteMedicine removes the row; reminders and history cascade via FK.
func (r *SQLiteRepository) DeleteMedicine(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE med_id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListMedicines(ctx context.Context, filter MedicineListFilter) ([]Medicine, error) {
	query := `SELECT med_id, user_id, name, generic_name, brand_name, manufacturer,
		category, form, strength, notes, source, source_ref, is_active, created_at FROM medicines`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 6)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active = 1")
	}
	if filter.Search != "" {
		clauses = append(clauses, "(name LIKE ? OR brand_name LIKE ? OR generic_name LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Medicine, 0)
	for rows.Next() {
		med, scanErr := scanMedicine(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, med)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in Reminder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders (reminder_id, med_id, user_id, hour, minute, days, kind, interval_days,
			enabled, notification_enabled, sound, snooze_enabled, start_date, end_date,
			last_triggered, next_trigger, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.MedicineID, in.UserID, in.Hour, in.Minute, in.Days, in.Kind, in.IntervalDays,
		boolInt(in.Enabled), boolInt(in.NotificationEnabled), in.Sound, boolInt(in.SnoozeEnabled),
		mustTime(in.StartDate), nullTime(in.EndDate), nullTime(in.LastTriggered),
		nullTime(in.NextTrigger), mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, id string) (Reminder, error) {
	row := r.db.QueryRowContext(ctx, reminderSelect+` WHERE reminder_id = ?`, id)
	rem, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return rem, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, in Reminder) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders
		SET med_id = ?, hour = ?, minute = ?, days = ?, kind = ?, interval_days = ?,
			enabled = ?, notification_enabled = ?, sound = ?, snooze_enabled = ?,
			start_date = ?, end_date = ?, last_triggered = ?, next_trigger = ?
		WHERE reminder_id = ?`,
		in.MedicineID, in.Hour, in.Minute, in.Days, in.Kind, in.IntervalDays,
		boolInt(in.Enabled), boolInt(in.NotificationEnabled), in.Sound, boolInt(in.SnoozeEnabled),
		mustTime(in.StartDate), nullTime(in.EndDate), nullTime(in.LastTriggered),
		nullTime(in.NextTrigger), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE reminder_id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

const reminderSelect = `
	SELECT reminder_id, med_id, user_id, hour, minute, days, kind, interval_days,
		enabled, notification_enabled, sound, snooze_enabled, start_date, end_date,
		last_triggered, next_trigger, created_at
	FROM reminders`

func (r *SQLiteRepository) ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error) {
	query := reminderSelect
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.MedicineID != "" {
		clauses = append(clauses, "med_id = ?")
		args = append(args, filter.MedicineID)
	}
	if filter.EnabledOnly {
		clauses = append(clauses, "enabled = 1")
	} else if filter.Enabled != nil {
		clauses = append(clauses, "enabled = ?")
		args = append(args, boolInt(*filter.Enabled))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY hour ASC, minute ASC, reminder_id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		rem, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SetReminderTriggerTimes(ctx context.Context, id string, lastTriggered, nextTrigger *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reminders SET last_triggered = ?, next_trigger = ? WHERE reminder_id = ?`,
		nullTime(lastTriggered), nullTime(nextTrigger), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) AppendHistory(ctx context.Context, in HistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (entry_id, reminder_id, med_id, user_id, scheduled_time,
			actual_time, status, notes, late_by_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, nullString(in.ReminderID), in.MedicineID, in.UserID, mustTime(in.ScheduledTime),
		mustTime(in.ActualTime), in.Status, in.Notes, in.LateByMinutes, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) ListHistory(ctx context.Context, filter HistoryListFilter) ([]HistoryEntry, error) {
	query := `
		SELECT h.entry_id, h.reminder_id, h.med_id, h.user_id, h.scheduled_time,
			h.actual_time, h.status, h.notes, h.late_by_minutes, h.created_at,
			COALESCE(m.name, '')
		FROM history h
		LEFT JOIN medicines m ON h.med_id = m.med_id`
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 7)
	if filter.UserID != "" {
		clauses = append(clauses, "h.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.MedicineID != "" {
		clauses = append(clauses, "h.med_id = ?")
		args = append(args, filter.MedicineID)
	}
	if filter.ReminderID != "" {
		clauses = append(clauses, "h.reminder_id = ?")
		args = append(args, filter.ReminderID)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "h.scheduled_time >= ?")
		args = append(args, mustTime(filter.Since))
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "h.scheduled_time < ?")
		args = append(args, mustTime(filter.Until))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY h.scheduled_time DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0)
	for rows.Next() {
		entry, scanErr := scanHistory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountAdherence(ctx context.Context, userID string, since time.Time) (AdherenceCounts, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'taken' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'missed' THEN 1 ELSE 0 END), 0)
		FROM history
		WHERE user_id = ? AND scheduled_time >= ?`,
		userID, mustTime(since),
	)
	var counts AdherenceCounts
	if err := row.Scan(&counts.Total, &counts.Taken, &counts.Skipped, &counts.Missed); err != nil {
		return AdherenceCounts{}, err
	}
	return counts, nil
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (User, error) {
	var out User
	var premium int
	var expires sql.NullString
	var created string
	if err := s.Scan(&out.ID, &out.Name, &out.Email, &out.Settings, &premium, &expires, &out.Timezone, &created); err != nil {
		return User{}, err
	}
	expiresAt, err := parseNullableTime(expires)
	if err != nil {
		return User{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return User{}, err
	}
	out.Premium = premium == 1
	out.PremiumExpiresAt = expiresAt
	out.CreatedAt = createdAt
	return out, nil
}

func scanMedicine(s scanner) (Medicine, error) {
	var out Medicine
	var active int
	var created string
	if err := s.Scan(&out.ID, &out.UserID, &out.Name, &out.GenericName, &out.BrandName,
		&out.Manufacturer, &out.Category, &out.Form, &out.Strength, &out.Notes,
		&out.Source, &out.SourceRef, &active, &created); err != nil {
		return Medicine{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Medicine{}, err
	}
	out.Active = active == 1
	out.CreatedAt = createdAt
	return out, nil
}

func scanReminder(s scanner) (Reminder, error) {
	var out Reminder
	var enabled, notification, snooze int
	var start, created string
	var end, lastTriggered, nextTrigger sql.NullString
	if err := s.Scan(&out.ID, &out.MedicineID, &out.UserID, &out.Hour, &out.Minute, &out.Days,
		&out.Kind, &out.IntervalDays, &enabled, &notification, &out.Sound, &snooze,
		&start, &end, &lastTriggered, &nextTrigger, &created); err != nil {
		return Reminder{}, err
	}
	startDate, err := parseRequiredTime(start)
	if err != nil {
		return Reminder{}, err
	}
	endDate, err := parseNullableTime(end)
	if err != nil {
		return Reminder{}, err
	}
	lastAt, err := parseNullableTime(lastTriggered)
	if err != nil {
		return Reminder{}, err
	}
	nextAt, err := parseNullableTime(nextTrigger)
	if err != nil {
		return Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Reminder{}, err
	}
	out.Enabled = enabled == 1
	out.NotificationEnabled = notification == 1
	out.SnoozeEnabled = snooze == 1
	out.StartDate = startDate
	out.EndDate = endDate
	out.LastTriggered = lastAt
	out.NextTrigger = nextAt
	out.CreatedAt = createdAt
	return out, nil
}

func scanHistory(s scanner) (HistoryEntry, error) {
	var out HistoryEntry
	var reminderID sql.NullString
	var scheduled, actual, created string
	if err := s.Scan(&out.ID, &reminderID, &out.MedicineID, &out.UserID, &scheduled,
		&actual, &out.Status, &out.Notes, &out.LateByMinutes, &created, &out.MedicineName); err != nil {
		return HistoryEntry{}, err
	}
	scheduledAt, err := parseRequiredTime(scheduled)
	if err != nil {
		return HistoryEntry{}, err
	}
	actualAt, err := parseRequiredTime(actual)
	if err != nil {
		return HistoryEntry{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return HistoryEntry{}, err
	}
	if reminderID.Valid {
		out.ReminderID = reminderID.String
	}
	out.ScheduledTime = scheduledAt
	out.ActualTime = actualAt
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
