package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/chachabrian/chefbook-backend/internal/models"
	"github.com/chachabrian/chefbook-backend/pkg/utils"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrInvalidPrincipal = errors.New("credential does not match an account")
)

// Principal is an authenticated caller. It is either a Requester or a Provider.
type Principal interface {
	PrincipalID() uint
	DisplayName() string
	DeviceToken() string
	principal()
}

// Requester is a client account that books chefs.
type Requester struct {
	ID        uint
	Name      string
	PushToken string
}

func (r Requester) PrincipalID() uint   { return r.ID }
func (r Requester) DisplayName() string { return r.Name }
func (r Requester) DeviceToken() string { return r.PushToken }
func (Requester) principal()            {}

// Provider is a chef account that accepts or declines bookings.
type Provider struct {
	ID        uint
	Name      string
	PushToken string
}

func (p Provider) PrincipalID() uint   { return p.ID }
func (p Provider) DisplayName() string { return p.Name }
func (p Provider) DeviceToken() string { return p.PushToken }
func (Provider) principal()            {}

// PrincipalFromUser maps an account row onto its principal variant.
func PrincipalFromUser(u *models.User) (Principal, error) {
	switch u.UserType {
	case models.UserTypeClient:
		return Requester{ID: u.ID, Name: u.Username, PushToken: u.FCMToken}, nil
	case models.UserTypeChef:
		return Provider{ID: u.ID, Name: u.Username, PushToken: u.FCMToken}, nil
	default:
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidPrincipal, u.UserType)
	}
}

// UserFinder loads account rows by id.
type UserFinder interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
}

// PrincipalResolver turns a bearer token into a Principal.
type PrincipalResolver struct {
	secret string
	users  UserFinder
}

func NewPrincipalResolver(secret string, users UserFinder) *PrincipalResolver {
	return &PrincipalResolver{secret: secret, users: users}
}

// Resolve validates the token and loads the account it names. The account's
// stored type wins over the type claimed in the token.
func (r *PrincipalResolver) Resolve(ctx context.Context, credential string) (Principal, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := utils.ValidateToken(r.secret, credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	user, err := r.users.FindUser(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidPrincipal
	}
	if err != nil {
		return nil, fmt.Errorf("load principal %d: %w", claims.UserID, err)
	}

	return PrincipalFromUser(user)
}
