package tokenpkg

import (
	"fmt"
	"time"

	"github.com/go-petr/sacco/pkg/configpkg"
)

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific username, role and duration.
	CreateToken(username, role string, duration time.Duration) (string, *Payload, error)

	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// NewMaker returns the token maker selected by the configuration.
func NewMaker(config configpkg.Config) (Maker, error) {
	switch config.TokenType {
	case configpkg.TokenTypeJWT:
		m, err := NewJWTMaker(config.TokenSymmetricKey)
		if err != nil {
			return nil, err
		}
		return m, nil
	case configpkg.TokenTypePaseto, "":
		m, err := NewPasetoMaker(config.TokenSymmetricKey)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	return nil, fmt.Errorf("unsupported token type %q", config.TokenType)
}
