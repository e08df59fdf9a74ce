package frontdesk

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random 6-digit numeric code.
func GenerateOTP() (string, error) {
	return generateOTP(rand.Reader)
}

func generateOTP(src io.Reader) (string, error) {
	n, err := rand.Int(src, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
