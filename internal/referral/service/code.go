package service

import (
	"crypto/rand"
	"math/big"
)

const (
	codeAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength      = 8
	codeRetryLength = 12
	codeMaxAttempts = 5
)

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
