package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are JWT claims for duel participants
type UserClaims struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	jwt.RegisteredClaims
}

// GuestRequest is the request body for issuing a guest token
type GuestRequest struct {
	DisplayName string `json:"displayName"`
}

// GuestResponse is returned after a guest token is issued
type GuestResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}
