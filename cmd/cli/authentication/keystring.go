package authentication

// keystring.go keeps the identity provider's access token in the OS keyring.

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "circlehub-cli"
	tokenKey    = "auth_tokens"
)

var ErrNoCredentials = errors.New("no stored credentials")

type StoredCredentials struct {
	AccessToken string    `json:"access_token"`
	Username    string    `json:"username,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

func StoreTokens(creds *StoredCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, tokenKey, string(data))
}

func GetTokens() (*StoredCredentials, error) {
	value, err := keyring.Get(serviceName, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}

	var creds StoredCredentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func DeleteTokens() error {
	err := keyring.Delete(serviceName, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
