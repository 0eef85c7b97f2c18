package tokenpkg

import (
	"testing"

	"github.com/go-petr/sacco/pkg/configpkg"
	"github.com/go-petr/sacco/pkg/randompkg"
	"github.com/stretchr/testify/require"
)

func TestNewMaker(t *testing.T) {
	key := randompkg.String(32)

	testCases := []struct {
		name      string
		tokenType string
		checkType func(m Maker)
		wantErr   bool
	}{
		{
			name:      "Paseto",
			tokenType: configpkg.TokenTypePaseto,
			checkType: func(m Maker) {
				require.IsType(t, &PasetoMaker{}, m)
			},
		},
		{
			name:      "JWT",
			tokenType: configpkg.TokenTypeJWT,
			checkType: func(m Maker) {
				require.IsType(t, &JWTMaker{}, m)
			},
		},
		{
			name:      "Unsupported",
			tokenType: "macaroon",
			wantErr:   true,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMaker(configpkg.Config{TokenType: tc.tokenType, TokenSymmetricKey: key})
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			tc.checkType(m)
		})
	}
}
