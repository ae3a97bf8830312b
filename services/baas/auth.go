package baas

import (
	"context"
	"net/http"

	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
)

var _ user.Backend = (*Client)(nil)

type signupRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      user.Role `json:"role"`
}

func (c *Client) Signup(ctx context.Context, nu user.NewUser) (user.Session, error) {
	role := nu.Role
	if role == "" {
		role = user.RoleStudent
	}
	var sess user.Session
	err := c.post(ctx, "/auth/signup", "", signupRequest{
		Email:     nu.Email,
		Password:  nu.Password,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      role,
	}, &sess)
	return sess, err
}

func (c *Client) Login(ctx context.Context, creds user.Credentials) (user.Session, error) {
	var sess user.Session
	err := c.post(ctx, "/auth/login", "", creds, &sess)
	return sess, err
}

func (c *Client) Me(ctx context.Context, token string) (user.User, error) {
	var usr user.User
	err := c.get(ctx, "/auth/me", token, &usr)
	return usr, err
}

func (c *Client) UpdateProfile(ctx context.Context, token string, up user.UpdateProfile) (user.User, error) {
	var usr user.User
	err := c.do(ctx, http.MethodPatch, "/auth/profile", token, up, &usr)
	return usr, err
}

func (c *Client) Upgrade(ctx context.Context, token string, target tier.Tier) (user.User, error) {
	var usr user.User
	err := c.post(ctx, "/auth/upgrade", token, struct {
		Tier tier.Tier `json:"tier"`
	}{target}, &usr)
	return usr, err
}
