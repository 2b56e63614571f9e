package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/openschool/campus/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreateMethod(ctx context.Context, m payment.Method) (payment.Method, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = uuid.NewString()
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *paymentRepository) GetMethod(ctx context.Context, id string) (payment.Method, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return payment.Method{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryMethods(ctx context.Context, userID string) ([]payment.Method, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	methods := make([]payment.Method, 0)
	for _, m := range repo.db.table {
		if m.UserID == userID {
			methods = append(methods, *m)
		}
	}
	sort.SliceStable(methods, func(i, j int) bool { return methods[i].CreatedAt.After(methods[j].CreatedAt) })
	return methods, nil
}

func (repo *paymentRepository) UpdateMethod(ctx context.Context, m payment.Method) (payment.Method, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[m.ID]
	if !ok {
		return payment.Method{}, payment.ErrNotFound
	}
	stored.Primary = m.Primary
	stored.Disabled = m.Disabled
	return *stored, nil
}

func (repo *paymentRepository) SetPrimary(ctx context.Context, userID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if m, ok := repo.db.table[id]; !ok || m.UserID != userID {
		return payment.ErrNotFound
	}
	for _, m := range repo.db.table {
		if m.UserID == userID {
			m.Primary = m.ID == id
		}
	}
	return nil
}
