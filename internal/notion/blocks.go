package notion

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// MaxAppendChildren is the largest batch accepted by one append call.
const MaxAppendChildren = 100

// AppendBlockChildren appends children to the end of a block or page.
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Block) ([]Block, error) {
	payload := struct {
		Children []Block `json:"children"`
	}{Children: children}
	var result BlockList
	err := c.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(blockID)+"/children", nil, jsonBody(payload), &result)
	return result.Results, err
}

// ListBlockChildren returns one page of a block's children.
func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string, pageSize int) (BlockList, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	query := url.Values{"page_size": {strconv.Itoa(pageSize)}}
	if cursor != "" {
		query.Set("start_cursor", cursor)
	}
	var result BlockList
	err := c.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(blockID)+"/children", query, nil, &result)
	return result, err
}

// ListAllBlockChildren follows cursors until every child is returned.
func (c *Client) ListAllBlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var all []Block
	cursor := ""
	for {
		page, err := c.ListBlockChildren(ctx, blockID, cursor, MaxPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)
		if !page.HasMore || page.NextCursor == nil || *page.NextCursor == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}
