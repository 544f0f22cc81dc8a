/**
 * @description
 * This file implements the `Repository` interface against PostgreSQL using
 * the pgx driver. All SQL for the membership service lives here.
 *
 * @notes
 * - members.assignment_number carries a unique constraint; violations are
 *   mapped to ErrDuplicateAssignmentNumber so the service can re-allocate.
 * - Date columns are DATE; they are scanned as time.Time and formatted to
 *   the YYYY-MM-DD strings the domain uses.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PawanLambole/haji-fitness-point/internal/domain"
)

const dateLayout = "2006-01-02"

// PostgresRepository is the pgx-backed implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const memberColumns = `
        id,
        assignment_number,
        full_name,
        phone_number,
        joining_date,
        membership_start,
        membership_end,
        total_amount,
        discount_amount,
        photo_url,
        is_active,
        created_at,
        updated_at,
        created_by
`

type memberRowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row memberRowScanner) (*domain.Member, error) {
	var m domain.Member
	var joining, start, end time.Time
	err := row.Scan(
		&m.ID,
		&m.AssignmentNumber,
		&m.FullName,
		&m.PhoneNumber,
		&joining,
		&start,
		&end,
		&m.TotalAmount,
		&m.DiscountAmount,
		&m.PhotoURL,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	m.JoiningDate = joining.Format(dateLayout)
	m.MembershipStart = start.Format(dateLayout)
	m.MembershipEnd = end.Format(dateLayout)
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ListMembers returns members ordered by creation time descending, applying
// the free-text filter as a case-insensitive partial match across full name,
// assignment number and phone, and the active-only filter as an equality
// predicate. Zero rows is a valid result, not an error.
func (r *PostgresRepository) ListMembers(ctx context.Context, filters domain.MemberFilters) ([]domain.Member, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT` + memberColumns + `
        FROM members
        WHERE TRUE
    `
	args := []interface{}{}
	argPos := 1

	if filters.Search != "" {
		query += fmt.Sprintf(`
          AND (
            full_name ILIKE '%%' || $%d || '%%'
            OR assignment_number ILIKE '%%' || $%d || '%%'
            OR phone_number ILIKE '%%' || $%d || '%%'
          )
        `, argPos, argPos, argPos)
		args = append(args, filters.Search)
		argPos++
	}

	if filters.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", argPos)
		args = append(args, *filters.IsActive)
		argPos++
	}

	query += fmt.Sprintf(`
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d
    `, argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// GetMemberByID retrieves a single member.
func (r *PostgresRepository) GetMemberByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `SELECT` + memberColumns + ` FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

// InsertMember persists a new member and returns the stored row.
func (r *PostgresRepository) InsertMember(ctx context.Context, member domain.Member) (*domain.Member, error) {
	query := `
        INSERT INTO members (
            assignment_number, full_name, phone_number, joining_date,
            membership_start, membership_end, total_amount, discount_amount,
            photo_url, is_active, created_by
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING` + memberColumns

	row := r.db.QueryRow(ctx, query,
		member.AssignmentNumber,
		member.FullName,
		member.PhoneNumber,
		member.JoiningDate,
		member.MembershipStart,
		member.MembershipEnd,
		member.TotalAmount,
		member.DiscountAmount,
		member.PhotoURL,
		member.IsActive,
		member.CreatedBy,
	)
	created, err := scanMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAssignmentNumber
		}
		return nil, err
	}
	return created, nil
}

// memberPatchSets builds the SET fragments and argument list for a partial
// update. Arguments are positioned after the row id at $1. An empty PhotoURL
// clears the column to NULL; the schema models "no photo" as NULL, never as
// an empty string.
func memberPatchSets(patch domain.MemberPatch) (sets []string, args []interface{}) {
	sets = []string{"updated_at = NOW()"}
	argPos := 2

	addSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if patch.AssignmentNumber != nil {
		addSet("assignment_number", *patch.AssignmentNumber)
	}
	if patch.FullName != nil {
		addSet("full_name", *patch.FullName)
	}
	if patch.PhoneNumber != nil {
		addSet("phone_number", *patch.PhoneNumber)
	}
	if patch.JoiningDate != nil {
		addSet("joining_date", *patch.JoiningDate)
	}
	if patch.MembershipStart != nil {
		addSet("membership_start", *patch.MembershipStart)
	}
	if patch.MembershipEnd != nil {
		addSet("membership_end", *patch.MembershipEnd)
	}
	if patch.TotalAmount != nil {
		addSet("total_amount", *patch.TotalAmount)
	}
	if patch.DiscountAmount != nil {
		addSet("discount_amount", *patch.DiscountAmount)
	}
	if patch.PhotoURL != nil {
		if *patch.PhotoURL == "" {
			addSet("photo_url", nil)
		} else {
			addSet("photo_url", *patch.PhotoURL)
		}
	}
	if patch.IsActive != nil {
		addSet("is_active", *patch.IsActive)
	}

	return sets, args
}

// UpdateMember applies a partial update and returns the resulting row. Nil
// patch fields are left untouched.
func (r *PostgresRepository) UpdateMember(ctx context.Context, id uuid.UUID, patch domain.MemberPatch) (*domain.Member, error) {
	sets, setArgs := memberPatchSets(patch)
	args := append([]interface{}{id}, setArgs...)

	query := fmt.Sprintf(`
        UPDATE members
        SET %s
        WHERE id = $1
        RETURNING`, joinSets(sets)) + memberColumns

	updated, err := scanMember(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAssignmentNumber
		}
		return nil, err
	}
	return updated, nil
}

func joinSets(sets []string) string {
	out := ""
	for i, s := range sets {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// DeleteMember removes a member row. Associated payments are removed by the
// ON DELETE CASCADE on payments.member_id.
func (r *PostgresRepository) DeleteMember(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListMembersExpiringBetween returns active members whose membership_end
// falls inside the inclusive [from, to] window, soonest expiry first.
func (r *PostgresRepository) ListMembersExpiringBetween(ctx context.Context, from, to string) ([]domain.Member, error) {
	query := `SELECT` + memberColumns + `
        FROM members
        WHERE is_active = TRUE
          AND membership_end BETWEEN $1 AND $2
        ORDER BY membership_end ASC
    `
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// NextAssignmentNumber invokes the atomic sequence function. The function
// increments a per-year counter row inside a single statement, so concurrent
// callers are serialized by the row lock and never see the same value.
func (r *PostgresRepository) NextAssignmentNumber(ctx context.Context) (string, error) {
	var number string
	err := r.db.QueryRow(ctx, `SELECT next_assignment_number()`).Scan(&number)
	if err != nil {
		return "", err
	}
	return number, nil
}

// LatestAssignmentNumber returns the newest member's assignment number, or
// "" when the table is empty.
func (r *PostgresRepository) LatestAssignmentNumber(ctx context.Context) (string, error) {
	var number string
	err := r.db.QueryRow(ctx, `
        SELECT assignment_number
        FROM members
        ORDER BY created_at DESC
        LIMIT 1
    `).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return number, nil
}

// InsertPayment persists a payment row and returns it.
func (r *PostgresRepository) InsertPayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	query := `
        INSERT INTO payments (member_id, amount, payment_method, payment_date, notes, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, member_id, amount, payment_method, payment_date, notes, created_at, created_by
    `
	var p domain.Payment
	var paymentDate time.Time
	err := r.db.QueryRow(ctx, query,
		payment.MemberID,
		payment.Amount,
		payment.PaymentMethod,
		payment.PaymentDate,
		payment.Notes,
		payment.CreatedBy,
	).Scan(
		&p.ID,
		&p.MemberID,
		&p.Amount,
		&p.PaymentMethod,
		&paymentDate,
		&p.Notes,
		&p.CreatedAt,
		&p.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentDate = paymentDate.Format(dateLayout)
	return &p, nil
}

// ListPaymentsByMember returns a member's payments, most recent first.
func (r *PostgresRepository) ListPaymentsByMember(ctx context.Context, memberID uuid.UUID) ([]domain.Payment, error) {
	query := `
        SELECT id, member_id, amount, payment_method, payment_date, notes, created_at, created_by
        FROM payments
        WHERE member_id = $1
        ORDER BY payment_date DESC, created_at DESC
    `
	rows, err := r.db.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var paymentDate time.Time
		if err := rows.Scan(
			&p.ID,
			&p.MemberID,
			&p.Amount,
			&p.PaymentMethod,
			&paymentDate,
			&p.Notes,
			&p.CreatedAt,
			&p.CreatedBy,
		); err != nil {
			return nil, err
		}
		p.PaymentDate = paymentDate.Format(dateLayout)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// LatestPaymentMethod returns the method of the member's most recent payment,
// or "" when the member has no payments.
func (r *PostgresRepository) LatestPaymentMethod(ctx context.Context, memberID uuid.UUID) (string, error) {
	var method string
	err := r.db.QueryRow(ctx, `
        SELECT payment_method
        FROM payments
        WHERE member_id = $1
        ORDER BY payment_date DESC, created_at DESC
        LIMIT 1
    `, memberID).Scan(&method)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return method, nil
}

// PaymentStats aggregates payments for the calendar month containing the
// given time.
func (r *PostgresRepository) PaymentStats(ctx context.Context, month time.Time) (*domain.PaymentStats, error) {
	var stats domain.PaymentStats
	err := r.db.QueryRow(ctx, `
        SELECT
            COALESCE(SUM(amount), 0),
            COUNT(*),
            COUNT(*) FILTER (WHERE payment_method = 'cash'),
            COUNT(*) FILTER (WHERE payment_method = 'upi')
        FROM payments
        WHERE DATE_TRUNC('month', payment_date) = DATE_TRUNC('month', $1::date)
    `, month.Format(dateLayout)).Scan(
		&stats.TotalRevenue,
		&stats.TotalPayments,
		&stats.CashPayments,
		&stats.UPIPayments,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
