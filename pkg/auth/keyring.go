// Package auth keeps the MangaDex refresh token in the system keyring.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/kerbaras/mdex/pkg/mangadex"
	"github.com/zalando/go-keyring"
)

const (
	service = "mdex"
	user    = "mangadex-refresh-token"
)

// ErrNoToken is returned when no refresh token was saved.
var ErrNoToken = errors.New("no saved mangadex session, run 'mdex login'")

func SetToken(token string) error {
	return keyring.Set(service, user, token)
}

func GetToken() (string, error) {
	token, err := keyring.Get(service, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return token, err
}

// DeleteToken removes the saved token. Deleting a missing token is not an error.
func DeleteToken() error {
	if err := keyring.Delete(service, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// Login authenticates client with a password and saves the refresh token.
func Login(ctx context.Context, client *mangadex.Client, username, password string) error {
	if err := client.Login(ctx, username, password); err != nil {
		return err
	}
	return save(client)
}

// Restore starts a session on client from the saved refresh token and saves
// the token the API hands back.
func Restore(ctx context.Context, client *mangadex.Client) error {
	token, err := GetToken()
	if err != nil {
		return err
	}
	if err := client.LoginWithToken(ctx, token); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return save(client)
}

func save(client *mangadex.Client) error {
	refresh := client.Tokens().Refresh
	if refresh == "" {
		return nil
	}
	if err := SetToken(refresh); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}
	return nil
}
