package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"voxnote/internal/auth"
)

// Credentials are collected by the login form.
type Credentials struct {
	Email    string
	Password string
}

// LoginForm builds the sign-in form. Field validation mirrors the server's rules
// so bad input never reaches the identity provider.
func LoginForm(creds *Credentials) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&creds.Email).
				Validate(func(s string) error {
					if msg := auth.ValidateEmail(s); msg != "" {
						return errors.New(msg)
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("Password is required")
					}
					return nil
				}),
		).Title("Sign in to voxnote"),
	)
}

// PromptLogin runs the login form in the terminal.
func PromptLogin() (Credentials, error) {
	var creds Credentials
	if err := LoginForm(&creds).Run(); err != nil {
		return Credentials{}, fmt.Errorf("login prompt failed: %w", err)
	}
	return creds, nil
}

// ConfirmDelete asks before a transcript is removed.
func ConfirmDelete(title string) (bool, error) {
	confirmed := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Are you sure you want to delete this transcript?").
			Description(title).
			Value(&confirmed),
	)).Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}
