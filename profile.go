package csda

import (
	"context"
	"fmt"
	"net/url"
)

const profilePath = "/signup/api/users/%s/"

// Profile returns the CSDA profile of an Earthdata Login user.
func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	resp, err := c.Do(ctx, &Request{Path: fmt.Sprintf(profilePath, url.PathEscape(username))})
	if err != nil {
		return nil, fmt.Errorf("getting profile %q: %w", username, err)
	}

	var profile Profile
	if err := resp.DecodeJSON(&profile); err != nil {
		return nil, fmt.Errorf("getting profile %q: %w", username, err)
	}
	return &profile, nil
}
