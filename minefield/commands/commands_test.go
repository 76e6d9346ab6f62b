package commands

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minefieldbot/minefield/minefield/database/repositories"
)

func TestUserNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"miss", &repositories.NotFoundError{Entity: "user", ID: "jhon"}, true},
		{"wrapped miss", fmt.Errorf("resolve target: %w", &repositories.NotFoundError{Entity: "user", ID: "jhon"}), true},
		{"repository failure", &repositories.RepositoryError{Operation: "GetByUsername", Entity: "user", Err: errors.New("down")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userNotFound(tt.err); got != tt.want {
				t.Errorf("userNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
