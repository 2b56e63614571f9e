package payment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/user"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("payment method not found")
	ErrDisabled  = core.NewConflictError("payment method is disabled")
	ErrEmbargoed = errors.New("we are unable to accept payments from this country")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateMethod(ctx context.Context, m Method) (Method, error)
		GetMethod(ctx context.Context, id string) (Method, error)
		// QueryMethods returns the methods of a user, newest first.
		QueryMethods(ctx context.Context, userID string) ([]Method, error)
		UpdateMethod(ctx context.Context, m Method) (Method, error)
		// SetPrimary makes the method the only primary one of its user.
		SetPrimary(ctx context.Context, userID, id string) error
	}

	// Provider stores cards in a payment vault from a single-use token.
	Provider interface {
		AddCard(ctx context.Context, customer Customer, singleUseToken string) (Card, error)
	}

	Service interface {
		Insert(ctx context.Context, usr user.User, nm NewMethod) (Method, error)
		List(ctx context.Context, usr user.User) ([]Method, error)
		SetPrimary(ctx context.Context, usr user.User, id string) (Method, error)
		Disable(ctx context.Context, usr user.User, id string) (Method, error)
	}

	service struct {
		repo        Repository
		provider    Provider
		enrollments enrollment.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, provider Provider, enrollments enrollment.Service) Service {
	return &service{
		repo:        repo,
		provider:    provider,
		enrollments: enrollments,
	}
}

// Insert vaults the card behind a single-use token. The first active method of a user is primary.
func (svc *service) Insert(ctx context.Context, usr user.User, nm NewMethod) (Method, error) {
	enr, err := svc.enrollments.Get(ctx, nm.EnrollmentID)
	if err != nil {
		return Method{}, err
	}
	if enr.StudentID != usr.ID {
		return Method{}, enrollment.ErrNotFound
	}

	methods, err := svc.repo.QueryMethods(ctx, usr.ID)
	if err != nil {
		return Method{}, errors.Wrap(err, "querying payment methods")
	}
	var profileID string
	primary := true
	for _, m := range methods {
		if profileID == "" {
			profileID = m.ProfileID
		}
		if !m.Disabled {
			primary = false
		}
	}

	first, last := splitName(usr.Name)
	card, err := svc.provider.AddCard(ctx, Customer{
		ProfileID:      profileID,
		MerchantRefNum: usr.ID,
		FirstName:      first,
		LastName:       last,
		Email:          usr.Email,
		Country:        nm.Country,
		PostalCode:     nm.PostalCode,
	}, nm.SingleUseToken)
	if err != nil {
		return Method{}, errors.Wrap(err, "adding card")
	}

	return svc.repo.CreateMethod(ctx, Method{
		UserID:       usr.ID,
		EnrollmentID: enr.ID,
		ProfileID:    card.ProfileID,
		CardID:       card.CardID,
		PaymentToken: card.PaymentToken,
		CardType:     card.CardType,
		LastDigits:   card.LastDigits,
		ExpiryMonth:  card.ExpiryMonth,
		ExpiryYear:   card.ExpiryYear,
		Primary:      primary,
		CreatedAt:    NowFunc().UTC(),
	})
}

func (svc *service) List(ctx context.Context, usr user.User) ([]Method, error) {
	return svc.repo.QueryMethods(ctx, usr.ID)
}

func (svc *service) SetPrimary(ctx context.Context, usr user.User, id string) (Method, error) {
	m, err := svc.get(ctx, usr, id)
	if err != nil {
		return Method{}, err
	}
	if m.Disabled {
		return Method{}, ErrDisabled
	}
	if err := svc.repo.SetPrimary(ctx, usr.ID, id); err != nil {
		return Method{}, err
	}
	m.Primary = true
	return m, nil
}

func (svc *service) Disable(ctx context.Context, usr user.User, id string) (Method, error) {
	m, err := svc.get(ctx, usr, id)
	if err != nil {
		return Method{}, err
	}
	m.Disabled = true
	m.Primary = false
	return svc.repo.UpdateMethod(ctx, m)
}

// get returns the method when it belongs to usr.
func (svc *service) get(ctx context.Context, usr user.User, id string) (Method, error) {
	m, err := svc.repo.GetMethod(ctx, id)
	if err != nil {
		return Method{}, err
	}
	if m.UserID != usr.ID {
		return Method{}, ErrNotFound
	}
	return m, nil
}
