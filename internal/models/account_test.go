package models

import (
	"errors"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"A@B.com", "a@b.com"},
		{"  user@example.com ", "user@example.com"},
		{"already@lower.io", "already@lower.io"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.out {
			t.Errorf("NormalizeEmail(%q)=%q want %q", tt.in, got, tt.out)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		wantErr error
	}{
		{
			name:    "valid",
			account: Account{Email: "a@b.com", PasswordHash: []byte("hash")},
			wantErr: nil,
		},
		{
			name:    "missing email",
			account: Account{PasswordHash: []byte("hash")},
			wantErr: ErrMissingEmail,
		},
		{
			name:    "blank email",
			account: Account{Email: "   ", PasswordHash: []byte("hash")},
			wantErr: ErrMissingEmail,
		},
		{
			name:    "missing credential",
			account: Account{Email: "a@b.com"},
			wantErr: ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate()=%v want %v", err, tt.wantErr)
			}
		})
	}
}
