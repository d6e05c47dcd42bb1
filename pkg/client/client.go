// Package client talks to the blog API on behalf of a signed-in user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blog/pkg/models"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Upload is a file attached to a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

type Client struct {
	base *url.URL
	hc   *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient gets a default
// client with a timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: u, hc: httpClient}, nil
}

// MediaURL turns a stored path such as uploads/x.png into an absolute URL.
func (c *Client) MediaURL(stored string) string {
	if stored == "" {
		return ""
	}
	return c.base.JoinPath(stored).String()
}

func (c *Client) Blogs(ctx context.Context) ([]models.Blog, error) {
	var blogs []models.Blog
	err := c.do(ctx, http.MethodGet, "/api/blogs", "", nil, "", &blogs)
	return blogs, err
}

func (c *Client) BlogsByAuthor(ctx context.Context, authorID string) ([]models.Blog, error) {
	var blogs []models.Blog
	err := c.do(ctx, http.MethodGet, "/api/blogs/getOne/"+url.PathEscape(authorID), "", nil, "", &blogs)
	return blogs, err
}

func (c *Client) Blog(ctx context.Context, id string) (models.Blog, error) {
	var blog models.Blog
	err := c.do(ctx, http.MethodGet, "/api/blogs/"+url.PathEscape(id), "", nil, "", &blog)
	return blog, err
}

// CreateBlog publishes a post authored by the session user.
func (c *Client) CreateBlog(ctx context.Context, s Session, form BlogForm) (models.Blog, error) {
	if err := form.Validate(); err != nil {
		return models.Blog{}, err
	}
	if !s.LoggedIn() {
		return models.Blog{}, ErrNoSession
	}

	fields := map[string]string{
		"title":       form.Title,
		"description": form.Description,
		"author":      s.User.ID,
	}
	body, ct, err := multipartBody(fields, "image", form.Image)
	if err != nil {
		return models.Blog{}, err
	}

	var blog models.Blog
	err = c.do(ctx, http.MethodPost, "/api/blogs", s.Token, body, ct, &blog)
	return blog, err
}

// UpdateBlog changes the non-empty fields of form. Empty fields keep their value.
func (c *Client) UpdateBlog(ctx context.Context, s Session, id string, form BlogForm) (models.Blog, error) {
	if !s.LoggedIn() {
		return models.Blog{}, ErrNoSession
	}

	fields := map[string]string{}
	if form.Title != "" {
		fields["title"] = form.Title
	}
	if form.Description != "" {
		fields["description"] = form.Description
	}
	body, ct, err := multipartBody(fields, "image", form.Image)
	if err != nil {
		return models.Blog{}, err
	}

	var blog models.Blog
	err = c.do(ctx, http.MethodPut, "/api/blogs/"+url.PathEscape(id), s.Token, body, ct, &blog)
	return blog, err
}

func (c *Client) DeleteBlog(ctx context.Context, s Session, id string) error {
	if !s.LoggedIn() {
		return ErrNoSession
	}
	return c.do(ctx, http.MethodDelete, "/api/blogs/"+url.PathEscape(id), s.Token, nil, "", nil)
}

// AddComment posts a comment and returns the blog's comments, newest first.
func (c *Client) AddComment(ctx context.Context, s Session, blogID, text string) ([]models.Comment, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if !s.LoggedIn() {
		return nil, ErrNoSession
	}

	var comments []models.Comment
	path := "/api/blogs/" + url.PathEscape(blogID) + "/comments"
	err := c.doJSON(ctx, http.MethodPost, path, s.Token, map[string]string{"text": text}, &comments)
	return comments, err
}

// AddReply answers a comment and returns its replies, newest first.
func (c *Client) AddReply(ctx context.Context, s Session, blogID, commentID, text string) ([]models.Reply, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if !s.LoggedIn() {
		return nil, ErrNoSession
	}

	var replies []models.Reply
	path := "/api/blogs/" + url.PathEscape(blogID) + "/comments/" + url.PathEscape(commentID) + "/replies"
	err := c.doJSON(ctx, http.MethodPost, path, s.Token, map[string]string{"text": text}, &replies)
	return replies, err
}

// MyBlogs lists the posts of the session user.
func (c *Client) MyBlogs(ctx context.Context, s Session) ([]models.Blog, error) {
	if !s.LoggedIn() {
		return nil, ErrNoSession
	}
	return c.BlogsByAuthor(ctx, s.User.ID)
}

// Browse lists all posts whose title or description contains term.
func (c *Client) Browse(ctx context.Context, term string) ([]models.Blog, error) {
	blogs, err := c.Blogs(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(blogs, term), nil
}

// Filter keeps the blogs whose title or description contains term, ignoring case.
// An empty term keeps everything.
func Filter(blogs []models.Blog, term string) []models.Blog {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return blogs
	}

	filtered := make([]models.Blog, 0, len(blogs))
	for _, b := range blogs {
		if strings.Contains(strings.ToLower(b.Title), term) || strings.Contains(strings.ToLower(b.Description), term) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, token, bytes.NewReader(b), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		b, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(b, &msg); err != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(b))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func multipartBody(fields map[string]string, fileField string, file *Upload) (io.Reader, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		fw, err := mw.CreateFormFile(fileField, file.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(fw, file.Content); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &body, mw.FormDataContentType(), nil
}
