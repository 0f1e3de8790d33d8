package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClerkClient reads users from the identity provider's backend API.
type ClerkClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClerkClient(baseURL, secretKey string, hc *http.Client) *ClerkClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &ClerkClient{baseURL: strings.TrimRight(baseURL, "/"), secretKey: secretKey, http: hc}
}

type clerkUser struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	ImageURL              string `json:"image_url"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// FetchIdentity calls GET /v1/users/{id}. PrimaryEmail is empty when the user
// has no address matching primary_email_address_id.
func (c *ClerkClient) FetchIdentity(ctx context.Context, subjectID string) (*ExternalIdentity, error) {
	if subjectID == "" {
		return nil, errors.New("empty subject")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/"+url.PathEscape(subjectID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()
	body := io.LimitReader(resp.Body, 1<<20)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, subjectID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, fmt.Errorf("identity request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var u clerkUser
	if err := json.NewDecoder(body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	id := &ExternalIdentity{
		SubjectID:  u.ID,
		GivenName:  u.FirstName,
		FamilyName: u.LastName,
		ImageURL:   u.ImageURL,
	}
	if id.SubjectID == "" {
		id.SubjectID = subjectID
	}
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			id.PrimaryEmail = e.EmailAddress
			break
		}
	}
	return id, nil
}
