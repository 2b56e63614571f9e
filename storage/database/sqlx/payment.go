package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/payment"
)

const paymentMethodColumns = `id, user_id, enrollment_id, profile_id, card_id, payment_token, card_type,
	last_digits, expiry_month, expiry_year, "primary", disabled, created_at`

type paymentMethodRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	EnrollmentID string    `db:"enrollment_id"`
	ProfileID    string    `db:"profile_id"`
	CardID       string    `db:"card_id"`
	PaymentToken string    `db:"payment_token"`
	CardType     string    `db:"card_type"`
	LastDigits   string    `db:"last_digits"`
	ExpiryMonth  int       `db:"expiry_month"`
	ExpiryYear   int       `db:"expiry_year"`
	Primary      bool      `db:"primary"`
	Disabled     bool      `db:"disabled"`
	CreatedAt    time.Time `db:"created_at"`
}

func newPaymentMethodRow(m payment.Method) paymentMethodRow {
	return paymentMethodRow{
		ID:           m.ID,
		UserID:       m.UserID,
		EnrollmentID: m.EnrollmentID,
		ProfileID:    m.ProfileID,
		CardID:       m.CardID,
		PaymentToken: m.PaymentToken,
		CardType:     m.CardType,
		LastDigits:   m.LastDigits,
		ExpiryMonth:  m.ExpiryMonth,
		ExpiryYear:   m.ExpiryYear,
		Primary:      m.Primary,
		Disabled:     m.Disabled,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func (r paymentMethodRow) method() payment.Method {
	return payment.Method{
		ID:           r.ID,
		UserID:       r.UserID,
		EnrollmentID: r.EnrollmentID,
		ProfileID:    r.ProfileID,
		CardID:       r.CardID,
		PaymentToken: r.PaymentToken,
		CardType:     r.CardType,
		LastDigits:   r.LastDigits,
		ExpiryMonth:  r.ExpiryMonth,
		ExpiryYear:   r.ExpiryYear,
		Primary:      r.Primary,
		Disabled:     r.Disabled,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) payment.Repository {
	return &paymentRepository{exec: exec}
}

func (repo paymentRepository) CreateMethod(ctx context.Context, m payment.Method) (payment.Method, error) {
	m.ID = uuid.NewString()
	q := `INSERT INTO payment_methods (` + paymentMethodColumns + `) VALUES (:id, :user_id, :enrollment_id,
		:profile_id, :card_id, :payment_token, :card_type, :last_digits, :expiry_month, :expiry_year, :primary,
		:disabled, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, newPaymentMethodRow(m)); err != nil {
		return payment.Method{}, errors.Wrap(err, "inserting payment method")
	}
	return m, nil
}

func (repo paymentRepository) GetMethod(ctx context.Context, id string) (payment.Method, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payment.Method{}, payment.ErrNotFound
	}
	var r paymentMethodRow
	q := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &r, q, id); err != nil {
		return payment.Method{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment method")
	}
	return r.method(), nil
}

func (repo paymentRepository) QueryMethods(ctx context.Context, userID string) ([]payment.Method, error) {
	var rows []paymentMethodRow
	q := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE user_id::text = $1 ORDER BY created_at DESC`
	if err := repo.exec.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying payment methods")
	}
	methods := make([]payment.Method, 0, len(rows))
	for _, r := range rows {
		methods = append(methods, r.method())
	}
	return methods, nil
}

func (repo paymentRepository) UpdateMethod(ctx context.Context, m payment.Method) (payment.Method, error) {
	q := `UPDATE payment_methods SET "primary" = :primary, disabled = :disabled WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, newPaymentMethodRow(m))
	if err != nil {
		return payment.Method{}, errors.Wrap(err, "updating payment method")
	}
	if err = checkAffected(res, payment.ErrNotFound); err != nil {
		return payment.Method{}, err
	}
	return m, nil
}

func (repo paymentRepository) SetPrimary(ctx context.Context, userID, id string) error {
	q := `UPDATE payment_methods SET "primary" = (id = $2) WHERE user_id = $1`
	res, err := repo.exec.ExecContext(ctx, q, userID, id)
	if err != nil {
		return errors.Wrap(err, "setting primary payment method")
	}
	return checkAffected(res, payment.ErrNotFound)
}
