package service

import (
	"crypto/rand"
	"math/big"
)

const (
	alphanumeric   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	roomCodeLength = 5
	guestNameLen   = 10
	guestPrefix    = "Guest"
)

// RandomString returns n characters drawn uniformly from the alphanumeric
// alphabet using crypto/rand.
func RandomString(n int) (string, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}

func generateRoomCode() (string, error) {
	return RandomString(roomCodeLength)
}

func generateGuestName() (string, error) {
	suffix, err := RandomString(guestNameLen)
	if err != nil {
		return "", err
	}
	return guestPrefix + suffix, nil
}
