package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL API 令牌有效期
const TokenTTL = 24 * time.Hour

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

// SetJWTSecret 设置签名密钥；为空时生成随机密钥（重启后旧令牌失效）
func SetJWTSecret(secret string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret == "" {
		secret = RandomSecret()
	}
	jwtSecret = []byte(secret)
}

// RandomSecret 32 字节随机十六进制串
func RandomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func secret() []byte {
	secretMu.RLock()
	s := jwtSecret
	secretMu.RUnlock()
	if s == nil {
		SetJWTSecret("")
		return secret()
	}
	return s
}

// GenerateJWT 生成JWT Token
func GenerateJWT(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(TokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// VerifyJWT 验证JWT Token
func VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
