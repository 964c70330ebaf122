package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword 尚未设置密码时接受的登录密码
const DefaultPassword = "admin"

// HashPassword bcrypt 加密
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword hash 为空时只认 DefaultPassword
func CheckPassword(password, hash string) bool {
	if hash == "" {
		return password == DefaultPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
