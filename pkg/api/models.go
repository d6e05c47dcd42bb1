package api

import "blog/pkg/models"

type MessageResponse struct {
	Message string `json:"message"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func newUserResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID.Hex(), Email: u.Email, ProfileImage: u.ProfileImage}
}
