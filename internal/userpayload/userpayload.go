package userpayload

import (
	"net/http"

	"github.com/SergeyParamoshkin/articleui/internal/user"
)

// UserPayload is the response of GET /users/me.
type UserPayload struct {
	*user.User
	Role string `json:"role"`
}

func NewUserPayloadResponse(user *user.User) *UserPayload {
	return &UserPayload{User: user}
}

// Render marks every known user as an author; the backend has no other role.
func (u *UserPayload) Render(w http.ResponseWriter, r *http.Request) error {
	u.Role = "author"

	return nil
}
