package graph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GetObject fetches the object with the given id, e.g. "me" or a page id.
func (c *Client) GetObject(
	ctx context.Context,
	id string,
	args url.Values,
) (
	Response,
	error,
) {
	return c.Request(ctx, id, RequestOptions{Args: args})
}

// GetObjects fetches several objects at once. The result maps each id to its
// object; an unknown id fails the whole call.
func (c *Client) GetObjects(
	ctx context.Context,
	ids []string,
	args url.Values,
) (
	Response,
	error,
) {
	args = cloneValues(args)
	args.Set("ids", strings.Join(ids, ","))
	return c.Request(ctx, "", RequestOptions{Args: args})
}

// GetConnections fetches a connection of an object, e.g. ("me", "friends").
func (c *Client) GetConnections(
	ctx context.Context,
	id string,
	connection string,
	args url.Values,
) (
	Response,
	error,
) {
	return c.Request(ctx, id+"/"+connection, RequestOptions{Args: args})
}

/*
PutObject writes an object to the graph, connected to parent. For example

	c.PutObject(ctx, "me", "feed", url.Values{"message": {"Hello, world"}})

posts to the current user's wall. Most writes need extended permissions on
the access token.
*/
func (c *Client) PutObject(
	ctx context.Context,
	parent string,
	connection string,
	data url.Values,
) (
	Response,
	error,
) {
	if data == nil {
		data = url.Values{}
	}
	return c.Request(ctx, parent+"/"+connection, RequestOptions{
		Method: http.MethodPost,
		Body:   data,
	})
}

// Attachment is the structured part of a wall post.
type Attachment struct {
	Name        string
	Link        string
	Caption     string
	Description string
	Picture     string
}

func (a *Attachment) values() map[string]string {
	if a == nil {
		return nil
	}
	out := make(map[string]string)
	for k, v := range map[string]string{
		"name":        a.Name,
		"link":        a.Link,
		"caption":     a.Caption,
		"description": a.Description,
		"picture":     a.Picture,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// PutWallPost writes message to the wall of profileID, or of the current
// user when profileID is empty.
func (c *Client) PutWallPost(
	ctx context.Context,
	message string,
	attachment *Attachment,
	profileID string,
) (
	Response,
	error,
) {
	if profileID == "" {
		profileID = "me"
	}
	data := mergeValues(url.Values{"message": {message}}, attachment.values())
	return c.PutObject(ctx, profileID, "feed", data)
}

func (c *Client) PutComment(
	ctx context.Context,
	id string,
	message string,
) (
	Response,
	error,
) {
	return c.PutObject(ctx, id, "comments", url.Values{"message": {message}})
}

func (c *Client) PutLike(ctx context.Context, id string) (Response, error) {
	return c.PutObject(ctx, id, "likes", nil)
}

func (c *Client) DeleteObject(ctx context.Context, id string) (Response, error) {
	return c.Request(ctx, id, RequestOptions{Method: http.MethodDelete})
}

// DeleteRequest deletes an app request addressed to userID.
func (c *Client) DeleteRequest(
	ctx context.Context,
	userID string,
	requestID string,
) (
	Response,
	error,
) {
	return c.DeleteObject(ctx, fmt.Sprintf("%s_%s", requestID, userID))
}

// PutPhoto uploads an image to the album or profile id (default "me").
func (c *Client) PutPhoto(
	ctx context.Context,
	image io.Reader,
	filename string,
	caption string,
	id string,
	extra url.Values,
) (
	Response,
	error,
) {
	if id == "" {
		id = "me"
	}
	body := cloneValues(extra)
	if caption != "" {
		body.Set("message", caption)
	}
	return c.Request(ctx, id, RequestOptions{
		Method: http.MethodPost,
		Body:   body,
		Files:  map[string]File{"file": {Name: filename, Reader: image}},
	})
}
