package memdb

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blog/pkg/models"
	"blog/pkg/storage"
)

func TestStore_CreateUser(t *testing.T) {
	db := New()
	ctx := context.Background()

	user, err := db.CreateUser(ctx, models.User{Email: " John@Example.com ", Password: "hash"})
	if err != nil {
		t.Fatalf("unexpected error creating user: %v", err)
	}
	if user.ID.IsZero() {
		t.Error("want generated user ID, got zero ID")
	}
	if user.Email != "john@example.com" {
		t.Errorf("want normalized email %q, got %q", "john@example.com", user.Email)
	}

	_, err = db.CreateUser(ctx, models.User{Email: "JOHN@example.com", Password: "other"})
	if !errors.Is(err, storage.ErrUserExists) {
		t.Errorf("want error %v, got %v", storage.ErrUserExists, err)
	}

	got, err := db.UserByEmail(ctx, "john@EXAMPLE.com")
	if err != nil {
		t.Fatalf("unexpected error retrieving user by email: %v", err)
	}
	if !reflect.DeepEqual(user, got) {
		t.Errorf("want user\n%+v\n\ngot user\n%+v\n", user, got)
	}

	_, err = db.UserByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, storage.ErrUserNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrUserNotFound, err)
	}
}

func TestStore_Blogs(t *testing.T) {
	db := New()
	ctx := context.Background()

	alice, _ := db.CreateUser(ctx, models.User{Email: "alice@example.com", ProfileImage: "uploads/alice.png"})
	bob, _ := db.CreateUser(ctx, models.User{Email: "bob@example.com"})

	testBlogs := []models.Blog{
		{Title: "First", Author: models.Author{ID: alice.ID}, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "Second", Author: models.Author{ID: bob.ID}, CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "Third", Author: models.Author{ID: alice.ID}, CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, b := range testBlogs {
		if _, err := db.CreateBlog(ctx, b); err != nil {
			t.Fatalf("unexpected error creating blog: %v", err)
		}
	}

	blogs, err := db.Blogs(ctx)
	if err != nil {
		t.Fatalf("unexpected error listing blogs: %v", err)
	}
	var titles []string
	for _, b := range blogs {
		titles = append(titles, b.Title)
	}
	if want := []string{"Third", "Second", "First"}; !reflect.DeepEqual(want, titles) {
		t.Errorf("want titles %v, got %v", want, titles)
	}
	if blogs[0].Author.Email != alice.Email || blogs[0].Author.ProfileImage != alice.ProfileImage {
		t.Errorf("want author resolved to %s, got %+v", alice.Email, blogs[0].Author)
	}

	byAlice, err := db.BlogsByAuthor(ctx, alice.ID)
	if err != nil {
		t.Fatalf("unexpected error listing blogs by author: %v", err)
	}
	if len(byAlice) != 2 {
		t.Fatalf("want 2 blogs by author, got %d", len(byAlice))
	}
	if byAlice[0].Title != "Third" || byAlice[1].Title != "First" {
		t.Errorf("want blogs [Third First], got [%s %s]", byAlice[0].Title, byAlice[1].Title)
	}
}

func TestStore_UpdateBlog(t *testing.T) {
	db := New()
	ctx := context.Background()

	blog, _ := db.CreateBlog(ctx, models.Blog{Title: "Old", Description: "Keep me", Image: "uploads/a.png"})

	got, err := db.UpdateBlog(ctx, blog.ID, models.BlogUpdate{Title: "New"})
	if err != nil {
		t.Fatalf("unexpected error updating blog: %v", err)
	}
	if got.Title != "New" {
		t.Errorf("want title %q, got %q", "New", got.Title)
	}
	if got.Description != "Keep me" {
		t.Errorf("want description %q, got %q", "Keep me", got.Description)
	}
	if got.Image != "uploads/a.png" {
		t.Errorf("want image %q, got %q", "uploads/a.png", got.Image)
	}

	_, err = db.UpdateBlog(ctx, primitive.NewObjectID(), models.BlogUpdate{Title: "New"})
	if !errors.Is(err, storage.ErrBlogNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrBlogNotFound, err)
	}
}

func TestStore_DeleteBlog(t *testing.T) {
	db := New()
	ctx := context.Background()

	blog, _ := db.CreateBlog(ctx, models.Blog{Title: "Doomed"})

	if err := db.DeleteBlog(ctx, blog.ID); err != nil {
		t.Fatalf("unexpected error deleting blog: %v", err)
	}
	if _, err := db.Blog(ctx, blog.ID); !errors.Is(err, storage.ErrBlogNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrBlogNotFound, err)
	}
	if err := db.DeleteBlog(ctx, blog.ID); !errors.Is(err, storage.ErrBlogNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrBlogNotFound, err)
	}
}

func TestStore_AddComment(t *testing.T) {
	db := New()
	ctx := context.Background()

	blog, _ := db.CreateBlog(ctx, models.Blog{Title: "Talk"})

	if _, err := db.AddComment(ctx, blog.ID, models.Comment{Text: "hello"}); err != nil {
		t.Fatalf("unexpected error adding comment: %v", err)
	}
	comments, err := db.AddComment(ctx, blog.ID, models.Comment{Text: "world"})
	if err != nil {
		t.Fatalf("unexpected error adding comment: %v", err)
	}

	var texts []string
	for _, c := range comments {
		texts = append(texts, c.Text)
	}
	if want := []string{"world", "hello"}; !reflect.DeepEqual(want, texts) {
		t.Errorf("want comments %v, got %v", want, texts)
	}
	if comments[0].Replies == nil {
		t.Error("want empty replies collection, got nil")
	}

	_, err = db.AddComment(ctx, primitive.NewObjectID(), models.Comment{Text: "lost"})
	if !errors.Is(err, storage.ErrBlogNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrBlogNotFound, err)
	}
}

func TestStore_AddReply(t *testing.T) {
	db := New()
	ctx := context.Background()

	blog, _ := db.CreateBlog(ctx, models.Blog{Title: "Talk"})
	comments, _ := db.AddComment(ctx, blog.ID, models.Comment{Text: "hello"})
	commentID := comments[0].ID

	if _, err := db.AddReply(ctx, blog.ID, commentID, models.Reply{Text: "first"}); err != nil {
		t.Fatalf("unexpected error adding reply: %v", err)
	}
	replies, err := db.AddReply(ctx, blog.ID, commentID, models.Reply{Text: "second"})
	if err != nil {
		t.Fatalf("unexpected error adding reply: %v", err)
	}
	if len(replies) != 2 || replies[0].Text != "second" || replies[1].Text != "first" {
		t.Errorf("want replies [second first], got %+v", replies)
	}

	before, _ := db.Blog(ctx, blog.ID)
	_, err = db.AddReply(ctx, blog.ID, primitive.NewObjectID(), models.Reply{Text: "orphan"})
	if !errors.Is(err, storage.ErrCommentNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrCommentNotFound, err)
	}
	after, _ := db.Blog(ctx, blog.ID)
	if !reflect.DeepEqual(before.Comments, after.Comments) {
		t.Errorf("want comments unchanged\n%+v\n\ngot\n%+v\n", before.Comments, after.Comments)
	}

	_, err = db.AddReply(ctx, primitive.NewObjectID(), commentID, models.Reply{Text: "lost"})
	if !errors.Is(err, storage.ErrBlogNotFound) {
		t.Errorf("want error %v, got %v", storage.ErrBlogNotFound, err)
	}
}

func TestStore_BlogResolvesAuthors(t *testing.T) {
	db := New()
	ctx := context.Background()

	alice, _ := db.CreateUser(ctx, models.User{Email: "alice@example.com", ProfileImage: "uploads/alice.png"})
	bob, _ := db.CreateUser(ctx, models.User{Email: "bob@example.com", ProfileImage: "uploads/bob.png"})

	blog, _ := db.CreateBlog(ctx, models.Blog{Title: "Talk", Author: models.Author{ID: alice.ID}})
	comments, _ := db.AddComment(ctx, blog.ID, models.Comment{Text: "hi", Author: models.Author{ID: bob.ID}})
	db.AddReply(ctx, blog.ID, comments[0].ID, models.Reply{Text: "hey", Author: models.Author{ID: alice.ID}})

	got, err := db.Blog(ctx, blog.ID)
	if err != nil {
		t.Fatalf("unexpected error retrieving blog: %v", err)
	}

	wantAlice := models.Author{ID: alice.ID, Email: alice.Email, ProfileImage: alice.ProfileImage}
	wantBob := models.Author{ID: bob.ID, Email: bob.Email, ProfileImage: bob.ProfileImage}
	if got.Author != wantAlice {
		t.Errorf("want blog author %+v, got %+v", wantAlice, got.Author)
	}
	if got.Comments[0].Author != wantBob {
		t.Errorf("want comment author %+v, got %+v", wantBob, got.Comments[0].Author)
	}
	if got.Comments[0].Replies[0].Author != wantAlice {
		t.Errorf("want reply author %+v, got %+v", wantAlice, got.Comments[0].Replies[0].Author)
	}

	// Listing resolves the blog author only.
	blogs, _ := db.Blogs(ctx)
	if blogs[0].Comments[0].Author.Email != "" {
		t.Errorf("want unresolved comment author in listing, got %+v", blogs[0].Comments[0].Author)
	}
}
