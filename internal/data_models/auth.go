package datamodels

import model "task-manager.com/task-manager/internal/models"

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public projection of a user. The password hash never leaves the store.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewUserResponse(u model.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email}
}

type AuthResult struct {
	Token string
	User  UserResponse
}
