package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/forum/domain"
	"github.com/smallbiznis/talentloop/pkg/db/pagination"
	"github.com/smallbiznis/talentloop/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var start = time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *docstore.MemoryBackend[domain.Document], *clock.FakeClock) {
	t.Helper()
	backend := docstore.NewMemoryBackend(EmptyDocument)
	fake := clock.NewFakeClock(start)
	return NewService(zap.NewNop(), backend, fake, nil), backend, fake
}

func addPost(t *testing.T, svc *Service, title, category string) domain.Post {
	t.Helper()
	post, err := svc.AddPost(context.Background(), domain.CreatePostRequest{
		Title:      title,
		Body:       "body of " + title,
		Category:   category,
		AuthorID:   "author-" + title,
		AuthorName: "Author " + title,
	})
	require.NoError(t, err)
	return post
}

func assertDocumentConsistent(t *testing.T, svc *Service) {
	t.Helper()
	doc, err := svc.backend.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(doc.Posts), doc.Stats.TotalPosts)
	assert.Equal(t, len(doc.Replies), doc.Stats.TotalReplies)
	for _, post := range doc.Posts {
		count := 0
		for _, r := range doc.Replies {
			if r.PostID == post.ID {
				count++
			}
		}
		assert.Equal(t, count, post.Replies, "reply counter of post %d", post.ID)
		assert.Equal(t, len(post.LikedBy), post.Likes, "like counter of post %d", post.ID)
	}
	for _, c := range doc.Categories {
		count := 0
		for _, p := range doc.Posts {
			if p.Category == c.Name {
				count++
			}
		}
		assert.Equal(t, count, c.Count, "category %s", c.Name)
	}
}

func TestPostReplyDeleteScenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	post := addPost(t, svc, "A", "UX Design")
	assert.Equal(t, int64(1), post.ID)
	assert.Zero(t, post.Replies)
	assert.Zero(t, post.Likes)

	_, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: 1, Body: "hi", AuthorID: "u2"})
	require.NoError(t, err)

	detail, err := svc.GetPostByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, 1, detail.Replies)
	assert.Len(t, detail.ReplyList, 1)
	assertDocumentConsistent(t, svc)

	deleted, err := svc.DeletePost(ctx, 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	page, err := svc.GetPosts(ctx, domain.PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)

	stats, err := svc.GetForumStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReplies)
	assert.Zero(t, stats.TotalPosts)
	assertDocumentConsistent(t, svc)
}

func TestPostIDsAreNeverReused(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	addPost(t, svc, "one", "General")
	second := addPost(t, svc, "two", "General")
	assert.Equal(t, int64(2), second.ID)

	deleted, err := svc.DeletePost(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	third := addPost(t, svc, "three", "General")
	assert.Equal(t, int64(3), third.ID)

	reply, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: third.ID, Body: "r"})
	require.NoError(t, err)
	_, err = svc.DeleteReply(ctx, third.ID, reply.ID)
	require.NoError(t, err)
	next, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: third.ID, Body: "r2"})
	require.NoError(t, err)
	assert.Equal(t, reply.ID+1, next.ID)
}

func TestGetPostsPagination(t *testing.T) {
	svc, backend, fake := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		addPost(t, svc, fmt.Sprintf("post %d", i), "General")
		fake.Advance(time.Minute)
	}
	saves := backend.Saves()

	page, err := svc.GetPosts(ctx, domain.PostFilter{Pagination: pagination.Pagination{Page: 2, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 10, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 2, page.Page)

	first, err := svc.GetPosts(ctx, domain.PostFilter{Pagination: pagination.Pagination{Limit: 3}})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, "post 10", first.Items[0].Title)
	assert.Equal(t, 4, first.TotalPages)

	// Listing never writes.
	assert.Equal(t, saves, backend.Saves())
}

func TestGetPostsFilters(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddPost(ctx, domain.CreatePostRequest{Title: "Remote Go roles", Category: "Job Search", Tags: []string{"golang", "remote", "golang"}})
	require.NoError(t, err)
	fake.Advance(time.Minute)
	_, err = svc.AddPost(ctx, domain.CreatePostRequest{Title: "Portfolio review", Body: "Figma tips", Category: "UX Design"})
	require.NoError(t, err)

	byCategory, err := svc.GetPosts(ctx, domain.PostFilter{Category: "UX Design"})
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 1)
	assert.Equal(t, "Portfolio review", byCategory.Items[0].Title)

	wrongCase, err := svc.GetPosts(ctx, domain.PostFilter{Category: "ux design"})
	require.NoError(t, err)
	assert.Zero(t, wrongCase.Total)

	byTag, err := svc.GetPosts(ctx, domain.PostFilter{Search: "GOLANG"})
	require.NoError(t, err)
	require.Len(t, byTag.Items, 1)
	assert.Equal(t, []string{"golang", "remote"}, byTag.Items[0].Tags)

	byBody, err := svc.GetPosts(ctx, domain.PostFilter{Search: "figma"})
	require.NoError(t, err)
	assert.Equal(t, 1, byBody.Total)
}

func TestTogglePostLikeIsIdempotentPair(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post := addPost(t, svc, "A", "General")

	liked, err := svc.TogglePostLike(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.LikeResult{Likes: 1, IsLiked: true}, liked)

	unliked, err := svc.TogglePostLike(ctx, post.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.LikeResult{Likes: 0, IsLiked: false}, unliked)

	missing, err := svc.TogglePostLike(ctx, 99, "u1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.TogglePostLike(ctx, post.ID, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
	assertDocumentConsistent(t, svc)
}

func TestToggleReplyLikeRequiresMatchingPost(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a := addPost(t, svc, "A", "General")
	b := addPost(t, svc, "B", "General")
	reply, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: a.ID, Body: "r"})
	require.NoError(t, err)

	wrong, err := svc.ToggleReplyLike(ctx, b.ID, reply.ID, "u1")
	require.NoError(t, err)
	assert.Nil(t, wrong)

	result, err := svc.ToggleReplyLike(ctx, a.ID, reply.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.LikeResult{Likes: 1, IsLiked: true}, result)
}

func TestReplyParentChecks(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a := addPost(t, svc, "A", "General")
	b := addPost(t, svc, "B", "General")

	_, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: 42, Body: "orphan"})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	reply, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: a.ID, Body: "r"})
	require.NoError(t, err)

	_, err = svc.DeleteReply(ctx, 42, reply.ID)
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	// Reply ids are global; the post id must match too.
	deleted, err := svc.DeleteReply(ctx, b.ID, reply.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = svc.DeleteReply(ctx, a.ID, reply.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assertDocumentConsistent(t, svc)
}

func TestUpdatePostMergesEditableFields(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := context.Background()
	post := addPost(t, svc, "A", "General")

	fake.Advance(time.Hour)
	title := "A, edited"
	tags := []string{"x", "x", "y"}
	updated, err := svc.UpdatePost(ctx, post.ID, domain.UpdatePostRequest{Title: &title, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, post.Body, updated.Body)
	assert.Equal(t, []string{"x", "y"}, updated.Tags)
	assert.Equal(t, "General", updated.Category)
	assert.True(t, updated.CreatedAt.Equal(post.CreatedAt))
	assert.True(t, updated.UpdatedAt.Equal(start.Add(time.Hour)))

	_, err = svc.UpdatePost(ctx, 99, domain.UpdatePostRequest{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveCategoryKeepsCounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	post := addPost(t, svc, "A", "General")

	moved, err := svc.MoveCategory(ctx, post.ID, "Hiring")
	require.NoError(t, err)
	assert.Equal(t, "Hiring", moved.Category)

	categories, err := svc.GetCategories(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, c := range categories {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, 0, counts["General"])
	assert.Equal(t, 1, counts["Hiring"])

	_, err = svc.MoveCategory(ctx, post.ID, "Gardening")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
	_, err = svc.MoveCategory(ctx, 99, "General")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assertDocumentConsistent(t, svc)
}

func TestGetPostByIDCountsViews(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := context.Background()
	post := addPost(t, svc, "A", "General")

	fake.Advance(time.Minute)
	_, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: post.ID, Body: "first"})
	require.NoError(t, err)
	fake.Advance(time.Minute)
	_, err = svc.AddReply(ctx, domain.CreateReplyRequest{PostID: post.ID, Body: "second"})
	require.NoError(t, err)

	_, err = svc.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	fake.Advance(time.Hour)
	detail, err := svc.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Views)
	assert.True(t, detail.CreatedAt.Equal(start))
	assert.True(t, detail.UpdatedAt.Equal(start.Add(2*time.Minute+time.Hour)))
	require.Len(t, detail.ReplyList, 2)
	assert.Equal(t, "first", detail.ReplyList[0].Body)

	missing, err := svc.GetPostByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCategorySlugsAndUsers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	categories, err := svc.GetCategories(ctx)
	require.NoError(t, err)
	slugs := map[string]string{}
	for _, c := range categories {
		slugs[c.Name] = c.Slug
	}
	assert.Equal(t, "ux-design", slugs["UX Design"])

	post := addPost(t, svc, "A", "General")
	_, err = svc.AddReply(ctx, domain.CreateReplyRequest{PostID: post.ID, AuthorID: "author-A"})
	require.NoError(t, err)
	_, err = svc.AddReply(ctx, domain.CreateReplyRequest{PostID: post.ID, AuthorID: "u9"})
	require.NoError(t, err)

	stats, err := svc.GetForumStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
}

func TestSaveFailureIsSurfaced(t *testing.T) {
	svc, backend, _ := newTestService(t)
	backend.SaveErr = errors.New("disk full")

	_, err := svc.AddPost(context.Background(), domain.CreatePostRequest{Title: "A"})
	assert.ErrorIs(t, err, docstore.ErrWriteFailure)

	backend.SaveErr = nil
	page, err := svc.GetPosts(context.Background(), domain.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestFileBackedForumSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.json")
	ctx := context.Background()

	first := NewService(zap.NewNop(), docstore.NewFileBackend(path, EmptyDocument), clock.NewFakeClock(start), nil)
	post, err := first.AddPost(ctx, domain.CreatePostRequest{Title: "persisted", Category: "General"})
	require.NoError(t, err)

	second := NewService(zap.NewNop(), docstore.NewFileBackend(path, EmptyDocument), clock.NewFakeClock(start), nil)
	detail, err := second.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "persisted", detail.Title)
}

func TestLoadsHandWrittenDocumentWithoutDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.json")
	raw := `{"categories":[{"name":"Custom","count":0}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	ctx := context.Background()

	svc := NewService(zap.NewNop(), docstore.NewFileBackend(path, EmptyDocument), clock.NewFakeClock(start), nil)
	categories, err := svc.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Custom", categories[0].Name)
	assert.Empty(t, categories[0].Slug)
	assert.Empty(t, categories[0].Description)

	post, err := svc.AddPost(ctx, domain.CreatePostRequest{Title: "first", Category: "Custom"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.ID)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(saved), "Anything about work and hiring")
	assert.Contains(t, string(saved), `"replies": []`)
}

func TestDocumentStaysConsistentAcrossMixedOperations(t *testing.T) {
	svc, _, fake := newTestService(t)
	ctx := context.Background()

	categories := []string{"General", "Hiring", "Unlisted"}
	var posts []int64
	for i := 0; i < 12; i++ {
		fake.Advance(time.Second)
		post := addPost(t, svc, fmt.Sprintf("p%d", i), categories[i%len(categories)])
		posts = append(posts, post.ID)
		for j := 0; j < i%4; j++ {
			_, err := svc.AddReply(ctx, domain.CreateReplyRequest{PostID: post.ID, AuthorID: fmt.Sprintf("u%d", j)})
			require.NoError(t, err)
		}
		if i%3 == 0 {
			_, err := svc.TogglePostLike(ctx, post.ID, "liker")
			require.NoError(t, err)
		}
	}
	for i, id := range posts {
		if i%4 == 1 {
			_, err := svc.DeletePost(ctx, id)
			require.NoError(t, err)
		}
	}
	assertDocumentConsistent(t, svc)
}
