package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"voltage-backend/internal/authorization"
	"voltage-backend/internal/models"
	"voltage-backend/internal/repository"
	"voltage-backend/pkg/utils"
	"voltage-backend/pkg/validator"
)

type AuthService struct {
	store         repository.Store
	jwtSecret     string
	tokenLifetime time.Duration
}

func NewAuthService(store repository.Store, jwtSecret string, tokenLifetime time.Duration) *AuthService {
	if tokenLifetime <= 0 {
		tokenLifetime = 72 * time.Hour
	}
	return &AuthService{
		store:         store,
		jwtSecret:     jwtSecret,
		tokenLifetime: tokenLifetime,
	}
}

func (s *AuthService) ensureStore() error {
	if s == nil || s.store == nil {
		return errors.New("user repository is not configured")
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	phone := utils.NormalizePhone(req.PhoneNumber)
	if !validator.ValidatePhone(phone) {
		return nil, newValidationError("phone number must be a valid Egyptian mobile number")
	}
	parentPhone := utils.NormalizePhone(req.ParentPhone)
	if parentPhone != "" && !validator.ValidatePhone(parentPhone) {
		return nil, newValidationError("parent phone must be a valid Egyptian mobile number")
	}
	if ok, message := validator.ValidatePassword(req.Password); !ok {
		return nil, newValidationError("%s", message)
	}

	repos := s.store.Repositories(ctx)
	taken, err := repos.Users.ExistsByPhone(phone)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrPhoneTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		PhoneNumber: phone,
		ParentPhone: parentPhone,
		Password:    string(hashedPassword),
		FirstName:   validator.SanitizeString(strings.TrimSpace(req.FirstName)),
		LastName:    validator.SanitizeString(strings.TrimSpace(req.LastName)),
		Role:        authorization.RoleStudent,
		Grade:       req.Grade,
		Governorate: strings.TrimSpace(req.Governorate),
	}

	if err := repos.Users.Create(user); err != nil {
		if repository.IsDuplicateKeyError(err) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	if err := s.ensureStore(); err != nil {
		return "", nil, err
	}

	user, err := s.store.Repositories(ctx).Users.GetByPhone(utils.NormalizePhone(req.PhoneNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	if err := s.ensureStore(); err != nil {
		return nil, err
	}

	user, err := s.store.Repositories(ctx).Users.GetByID(userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"phone":   user.PhoneNumber,
		"role":    string(user.Role),
		"exp":     time.Now().Add(s.tokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
}
