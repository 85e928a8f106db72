package auth

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"shoplite/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
)

type userRepo interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type tokenIssuer interface {
	Issue(u domain.User) (string, error)
}

// Service handles user signup/login flows.
type Service struct {
	repo        userRepo
	tokens      tokenIssuer
	validate    *validator.Validate
	logger      *zap.Logger
	passwordMin int
}

// New creates a Service with sane defaults.
func New(repo userRepo, tokens tokenIssuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{
		repo:        repo,
		tokens:      tokens,
		validate:    v,
		logger:      logger,
		passwordMin: 8,
	}
}

// SignupInput captures fields expected by the signup endpoint.
// Password strength is checked separately by validatePassword.
type SignupInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// Signup registers a new user and issues a session token for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, string, error) {
	in = SignupInput{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(strings.ToLower(in.Email)),
		Password: strings.TrimSpace(in.Password),
	}
	if err := s.checkSignup(in); err != nil {
		return nil, "", err
	}
	name, email, password := in.Name, in.Email, in.Password

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	u, err := s.repo.Create(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Cart:         domain.Cart{Lines: []domain.LineItem{}},
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, "", fmt.Errorf("%w: email already registered", domain.ErrAlreadyExists)
		}
		return nil, "", err
	}
	token, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user signed up", zap.String("user_id", u.ID))
	return u, token, nil
}

// Login validates credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	password = strings.TrimSpace(password)
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, "", err
	}
	s.logger.Debug("user logged in", zap.String("user_id", u.ID))
	return u, token, nil
}

// Lookup returns the user a verified token refers to.
func (s *Service) Lookup(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) checkSignup(in SignupInput) error {
	var fields []domain.FieldError
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, domain.FieldError{Field: fe.Field(), Msg: signupMessage(fe)})
		}
	}
	if err := validatePassword(in.Password, s.passwordMin); err != nil {
		fields = append(fields, domain.FieldError{Field: "password", Msg: err.Error()})
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Message: "validation failed", Fields: fields}
	}
	return nil
}

func signupMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "name":
		return "Name is required"
	case fe.Field() == "email" && fe.Tag() == "required":
		return "Email is required"
	case fe.Field() == "email":
		return "Email is invalid"
	}
	return fe.Field() + " is invalid"
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
