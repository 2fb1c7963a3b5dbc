package hash

import "golang.org/x/crypto/bcrypt"

const Cost = 10

// Bcrypt hashes and compares passwords.
type Bcrypt struct{}

func (Bcrypt) Hash(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

func (Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
