package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"size:10;not null;default:'staff'" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"omitempty,min=6"`
	Role     UserRole `json:"role" binding:"required"`
	IsActive *bool    `json:"is_active"`
}

type LoginInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserId    int       `json:"user_id"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
}

var ErrInvalidLogin = errors.New("invalid username or password")

/*
caches:
	RevokedToken:$token
*/

func revokedTokenKey(token string) string {
	return "RevokedToken:" + token
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, ErrInvalidLogin
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, expiresAt, err := utils.JwtGenerate(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginInfo{
		Token:     token,
		ExpiresAt: expiresAt,
		UserId:    user.ID,
		Name:      user.Name,
		Role:      user.Role,
	}, nil
}

// Logout revokes the current token until it would have expired.
func Logout(ctx context.Context, expiresAt time.Time) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("token is required")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return config.SetRedisValue(revokedTokenKey(token), "1", ttl)
}

func IsTokenRevoked(token string) (bool, error) {
	_, exists, err := config.GetRedisValue(revokedTokenKey(token))
	return exists, err
}

func (input *NewUser) validate(ctx context.Context, id int) error {
	input.Username = html.EscapeString(strings.ToLower(strings.TrimSpace(input.Username)))
	if input.Username == "" {
		return utils.NewValidationMessage("username", "username is required")
	}
	if !input.Role.IsValid() {
		return utils.NewValidationMessage("role", "role must be admin or staff")
	}
	if id == 0 && len(input.Password) < 6 {
		return utils.NewValidationMessage("password", "password must have at least 6 characters")
	}
	return utils.ValidateUnique[User](ctx, "username", input.Username, id)
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return createUser(ctx, input)
}

func createUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username: input.Username,
		Name:     strings.TrimSpace(input.Name),
		Password: string(hashedPassword),
		Role:     input.Role,
		IsActive: input.IsActive,
	}
	if user.IsActive == nil {
		user.IsActive = utils.NewTrue()
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SeedAdmin creates the first admin account when no admin exists yet.
func SeedAdmin(ctx context.Context, username string, name string, password string) (*User, bool, error) {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Where("role = ?", UserRoleAdmin).Count(&count).Error; err != nil {
		return nil, false, err
	}
	if count > 0 {
		return nil, false, nil
	}
	user, err := createUser(ctx, &NewUser{Username: username, Name: name, Password: password, Role: UserRoleAdmin})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func UpdateUser(ctx context.Context, id int, input *NewUser) (*User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	var result User
	err := runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&result, id).Error; err != nil {
			return notFoundOr(err)
		}
		before := result
		updates := map[string]interface{}{
			"username": input.Username,
			"name":     strings.TrimSpace(input.Name),
			"role":     input.Role,
		}
		if input.IsActive != nil {
			updates["is_active"] = *input.IsActive
		}
		if input.Password != "" {
			hashed, err := utils.HashPassword(input.Password)
			if err != nil {
				return err
			}
			updates["password"] = string(hashed)
		}
		if err := tx.Model(&result).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.First(&result, id).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, "users", before, result, "User updated")
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func ListUsers(ctx context.Context) ([]*User, error) {
	db := config.GetDB()
	var results []*User
	err := db.WithContext(ctx).Order("username").Find(&results).Error
	return results, err
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return errors.New("user id is required")
	}
	if len(newPassword) < 6 {
		return utils.NewValidationMessage("password", "password must have at least 6 characters")
	}
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, userId).Error; err != nil {
		return notFoundOr(err)
	}
	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return utils.NewValidationMessage("old_password", "old password is wrong")
	}
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&user).UpdateColumn("password", string(hashed)).Error
}
