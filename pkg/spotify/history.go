package spotify

import (
	"context"
	"fmt"
)

// FetchProfile returns the profile of the user who granted the token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	if err := c.getJSON(ctx, c.apiURL+"/me", accessToken, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FetchRecentlyPlayed returns up to limit recently-played items, newest
// first.
//
// The endpoint serves at most MaxPageSize items per page, so larger
// limits follow the next-page cursors until the limit is met or the
// history is exhausted.
func (c *Client) FetchRecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]PlayedItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	pageSize := limit
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	next := fmt.Sprintf("%s/me/player/recently-played?limit=%d", c.apiURL, pageSize)
	items := make([]PlayedItem, 0, limit)

	for next != "" && len(items) < limit {
		var page historyPage
		if err := c.getJSON(ctx, next, accessToken, &page); err != nil {
			return nil, err
		}
		c.logDebugf("spotify: fetched %d history items", len(page.Items))
		if len(page.Items) == 0 {
			break
		}
		items = append(items, page.Items...)
		next = page.Next
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
