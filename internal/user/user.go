package user

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("user not found")

// User data model
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Directory is a fixed set of users looked up by name.
type Directory struct {
	users []*User
}

func NewDirectory(users ...*User) *Directory {
	return &Directory{users: users}
}

// Fixtures returns the authors of the fixture articles.
func Fixtures() *Directory {
	return NewDirectory(
		&User{ID: 100, Name: "Peter"},
		&User{ID: 200, Name: "Julia"},
	)
}

// Lookup finds a user by exact name. Surrounding blanks are ignored.
func (d *Directory) Lookup(name string) (*User, error) {
	name = strings.TrimSpace(name)
	for _, u := range d.users {
		if u.Name == name {
			c := *u

			return &c, nil
		}
	}

	return nil, ErrNotFound
}
