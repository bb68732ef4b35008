package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/talentloop/pkg/db/pagination"
)

type CreatePostRequest struct {
	Title      string
	Body       string
	Category   string
	Tags       []string
	AuthorID   string
	AuthorName string
}

// UpdatePostRequest carries the editable fields; nil leaves a field as is.
// The category moves only through MoveCategory.
type UpdatePostRequest struct {
	Title *string
	Body  *string
	Tags  *[]string
}

type CreateReplyRequest struct {
	PostID     int64
	Body       string
	AuthorID   string
	AuthorName string
}

type PostFilter struct {
	pagination.Pagination
	Category string
	Search   string
}

type Service interface {
	AddPost(ctx context.Context, req CreatePostRequest) (Post, error)
	UpdatePost(ctx context.Context, id int64, req UpdatePostRequest) (Post, error)
	MoveCategory(ctx context.Context, id int64, category string) (Post, error)
	DeletePost(ctx context.Context, id int64) (bool, error)
	AddReply(ctx context.Context, req CreateReplyRequest) (Reply, error)
	DeleteReply(ctx context.Context, postID, replyID int64) (bool, error)
	TogglePostLike(ctx context.Context, postID int64, userID string) (*LikeResult, error)
	ToggleReplyLike(ctx context.Context, postID, replyID int64, userID string) (*LikeResult, error)
	GetPosts(ctx context.Context, filter PostFilter) (PostPage, error)
	GetPostByID(ctx context.Context, id int64) (*PostDetail, error)
	GetForumStats(ctx context.Context) (Stats, error)
	GetCategories(ctx context.Context) ([]Category, error)
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrParentNotFound  = errors.New("parent_not_found")
	ErrUnknownCategory = errors.New("unknown_category")
	ErrInvalidUser     = errors.New("invalid_user")
)
