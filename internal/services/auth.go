package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	Register(ctx context.Context, input *RegisterInput) (*types.User, error)
	Login(ctx context.Context, email, password string) (*AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	AccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := baseLog.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func validRole(role string) bool {
	switch role {
	case types.RoleStudent, types.RoleTeacher, types.RoleMentor, types.RoleCounselor, types.RoleAdmin:
		return true
	}
	return false
}

func (as *authService) Register(ctx context.Context, input *RegisterInput) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = types.RoleStudent
	}

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", pkgerrors.ErrInvalidArgument)
	}
	if fullName == "" {
		return nil, fmt.Errorf("full_name is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if !validRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, pkgerrors.ErrInvalidArgument)
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email already registered: %w", pkgerrors.ErrInvalidArgument)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: string(hashed),
		FullName: fullName,
		Role:     role,
		IsActive: true,
	}
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, cErr := as.userRepo.Create(ctx, tx, user)
		return cErr
	}); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	as.log.Info("User registered", "user_id", user.ID.String(), "role", user.Role)
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", pkgerrors.ErrInvalidArgument)
	}

	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if err == pkgerrors.ErrNotFound {
			return nil, fmt.Errorf("invalid email or password: %w", pkgerrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account is deactivated: %w", pkgerrors.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid email or password: %w", pkgerrors.ErrUnauthorized)
	}

	var tokens *AuthTokens
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, issueErr := as.issueTokens(ctx, tx, user)
		if issueErr != nil {
			return issueErr
		}
		tokens = t
		return nil
	}); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh_token is required: %w", pkgerrors.ErrInvalidArgument)
	}

	var tokens *AuthTokens
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, ftErr := as.userTokenRepo.GetByRefreshToken(ctx, tx, refreshToken)
		if ftErr != nil {
			if ftErr == pkgerrors.ErrNotFound {
				return fmt.Errorf("unknown refresh token: %w", pkgerrors.ErrUnauthorized)
			}
			return fmt.Errorf("failed to load refresh token: %w", ftErr)
		}
		if existing.ExpiresAt.Before(time.Now()) {
			_ = as.userTokenRepo.DeleteByRefreshToken(ctx, tx, refreshToken)
			return fmt.Errorf("refresh token expired: %w", pkgerrors.ErrUnauthorized)
		}

		user, uErr := as.userRepo.GetByID(ctx, tx, existing.UserID)
		if uErr != nil {
			return fmt.Errorf("failed to load user for refresh: %w", uErr)
		}
		if !user.IsActive {
			return fmt.Errorf("account is deactivated: %w", pkgerrors.ErrUnauthorized)
		}

		t, issueErr := as.issueTokens(ctx, tx, user)
		if issueErr != nil {
			return issueErr
		}
		// Rotate: old refresh token is single use.
		if dErr := as.userTokenRepo.DeleteByRefreshToken(ctx, tx, refreshToken); dErr != nil {
			return fmt.Errorf("failed to rotate refresh token: %w", dErr)
		}
		tokens = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (as *authService) Logout(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return fmt.Errorf("no request data in context: %w", pkgerrors.ErrUnauthorized)
	}
	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return as.userTokenRepo.DeleteByUserID(ctx, tx, rd.UserID)
	})
}

func (as *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*AuthTokens, error) {
	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refreshToken := uuid.New().String()
	userToken := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(ctx, tx, userToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, fmt.Errorf("empty token: %w", pkgerrors.ErrUnauthorized)
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", pkgerrors.ErrUnauthorized)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired token: %w", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", pkgerrors.ErrUnauthorized)
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) AccessTTL() time.Duration {
	return as.accessTTL
}
