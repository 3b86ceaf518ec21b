package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by board tokens. Role is one of "owner", "teacher",
// "student".
type Claims struct {
	UserID      string
	DisplayName string
	Role        string
}

type Validator struct {
	alg    string
	pub    *rsa.PublicKey
	secret []byte
}

func NewValidator(alg, publicKeyPath, hsSecret string) (*Validator, error) {
	switch strings.ToUpper(alg) {
	case "RS256":
		b, err := os.ReadFile(publicKeyPath)
		if err != nil {
			return nil, err
		}
		block, _ := pem.Decode(b)
		if block == nil {
			return nil, errors.New("failed to decode public key")
		}
		pubIfc, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		pub, ok := pubIfc.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("not rsa public key")
		}
		return &Validator{alg: "RS256", pub: pub}, nil
	case "HS256":
		if hsSecret == "" {
			return nil, errors.New("hs secret required for HS256")
		}
		return &Validator{alg: "HS256", secret: []byte(hsSecret)}, nil
	default:
		return nil, errors.New("invalid jwt alg (use RS256 or HS256)")
	}
}

func (v *Validator) Validate(tokenStr string) (*Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if v.alg == "RS256" {
			return v.pub, nil
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.alg}))
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token")
	}
	out := &Claims{}
	if sub, ok := claims["sub"].(string); ok {
		out.UserID = sub
	} else if userID, ok := claims["user_id"].(string); ok {
		out.UserID = userID
	}
	if out.UserID == "" {
		return nil, errors.New("invalid token")
	}
	if name, ok := claims["name"].(string); ok {
		out.DisplayName = name
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	} else {
		out.Role = "student"
	}
	return out, nil
}
