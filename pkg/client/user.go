package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrServiceUnavailable = errors.New("upstream service unavailable")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserClient talks to the users service. Only the contact lookup is consumed here.
type UserClient struct {
	httpClient *HttpClient
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		httpClient: NewHttpClient(baseURL, timeout),
	}
}

// GetEmail returns the user's contact address. A missing user yields ErrUserNotFound;
// transport failures, timeouts and 5xx answers wrap ErrServiceUnavailable.
func (c *UserClient) GetEmail(ctx context.Context, userID string) (string, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/users/id/"+url.PathEscape(userID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrUserNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: users service answered %d: %s", ErrServiceUnavailable, resp.StatusCode, GetErrorMessage(resp))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("users service answered %d: %s", resp.StatusCode, GetErrorMessage(resp))
	}

	var wrapper struct {
		Data User `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return "", fmt.Errorf("could not decode user: %w", err)
	}
	if wrapper.Data.Email == "" {
		return "", fmt.Errorf("user %s has no email address", userID)
	}

	return wrapper.Data.Email, nil
}
